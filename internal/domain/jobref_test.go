package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

func TestParseJobRef(t *testing.T) {
	ref, err := ParseJobRef("42")
	require.NoError(t, err)
	assert.True(t, ref.IsLedger())
	assert.Equal(t, int64(42), ref.LedgerID())
	assert.Equal(t, "42", ref.String())
	assert.Equal(t, TaskClassSubmit, ref.Class())

	ref, err = ParseJobRef("run_1717171717")
	require.NoError(t, err)
	assert.True(t, ref.IsEphemeral())
	assert.Equal(t, "run_1717171717", ref.String())
	assert.Equal(t, TaskClassRun, ref.Class())

	ref, err = ParseJobRef("ref_abc")
	require.NoError(t, err)
	assert.Equal(t, TaskClassReference, ref.Class())
}

func TestParseJobRefMalformed(t *testing.T) {
	for _, raw := range []string{"", "abc", "-3", "0", "run_", "12x", "job_5"} {
		_, err := ParseJobRef(raw)
		assert.True(t, errors.Is(err, errs.ErrMalformedJobID), raw)
	}
}
