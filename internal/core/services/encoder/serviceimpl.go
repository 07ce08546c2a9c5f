package encoder

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/judge-relay.net/internal/domain"
)

var _ IEncoder = (*Encoder)(nil)

var ErrMissingJobID = errors.New("encoder: job id is required")

// Encoder base64-encodes free text so that quotes, newlines and other
// control characters survive every queue and transport unchanged.
type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Encode(req domain.TaskRequest) (domain.TaskPayload, error) {
	if req.JobID.Kind() == 0 {
		return domain.TaskPayload{}, ErrMissingJobID
	}

	payload := domain.TaskPayload{
		JobID:     req.JobID.String(),
		CodeB64:   base64.StdEncoding.EncodeToString([]byte(req.SourceCode)),
		Language:  strings.ToLower(req.Language),
		ProblemID: req.ProblemID,
		InputPath: req.InputPath,
	}
	if req.CustomInput != nil {
		payload.CustomInputB64 = base64.StdEncoding.EncodeToString([]byte(*req.CustomInput))
	}
	return payload, nil
}

// NewEphemeralID mints a time-ordered id for a run or reference-run job.
func NewEphemeralID(class domain.TaskClass) (domain.JobRef, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.JobRef{}, err
	}
	return domain.EphemeralRef(class.EphemeralPrefix() + id.String()), nil
}
