package domain

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

const (
	EphemeralRunPrefix       = "run_"
	EphemeralReferencePrefix = "ref_"
)

type JobRefKind int

const (
	JobRefLedger JobRefKind = iota + 1
	JobRefEphemeral
)

// JobRef identifies a job either by its ledger submission id or by an
// ephemeral token. The zero value is invalid.
type JobRef struct {
	kind     JobRefKind
	ledgerID int64
	token    string
}

func LedgerRef(id int64) JobRef {
	return JobRef{kind: JobRefLedger, ledgerID: id}
}

func EphemeralRef(token string) JobRef {
	return JobRef{kind: JobRefEphemeral, token: token}
}

// ParseJobRef classifies an external job id. Prefixed tokens are ephemeral,
// positive integers are ledger ids and anything else is malformed.
func ParseJobRef(raw string) (JobRef, error) {
	raw = strings.TrimSpace(raw)
	for _, prefix := range []string{EphemeralRunPrefix, EphemeralReferencePrefix} {
		if strings.HasPrefix(raw, prefix) {
			if len(raw) == len(prefix) {
				return JobRef{}, fmt.Errorf("%w: %q", errs.ErrMalformedJobID, raw)
			}
			return EphemeralRef(raw), nil
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return JobRef{}, fmt.Errorf("%w: %q", errs.ErrMalformedJobID, raw)
	}
	return LedgerRef(id), nil
}

func (r JobRef) Kind() JobRefKind { return r.kind }

func (r JobRef) IsLedger() bool { return r.kind == JobRefLedger }

func (r JobRef) IsEphemeral() bool { return r.kind == JobRefEphemeral }

func (r JobRef) LedgerID() int64 { return r.ledgerID }

// Class returns the task class implied by the reference shape.
func (r JobRef) Class() TaskClass {
	switch {
	case r.IsLedger():
		return TaskClassSubmit
	case strings.HasPrefix(r.token, EphemeralReferencePrefix):
		return TaskClassReference
	default:
		return TaskClassRun
	}
}

func (r JobRef) String() string {
	if r.IsLedger() {
		return strconv.FormatInt(r.ledgerID, 10)
	}
	return r.token
}
