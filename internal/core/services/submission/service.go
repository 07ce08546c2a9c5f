package submission

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

type SubmitRequest struct {
	ProblemID int64  `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

type RunRequest struct {
	ProblemID   int64   `json:"problem_id"`
	Code        string  `json:"code"`
	Language    string  `json:"language"`
	CustomInput *string `json:"custom_input,omitempty"`
}

type Accepted struct {
	JobID   string         `json:"job_id"`
	Verdict domain.Verdict `json:"verdict"`
}

// ISubmissionService is the intake side of the pipeline: it validates a
// request, records it and hands it to the dispatcher.
type ISubmissionService interface {
	// Submit creates a Pending ledger row and dispatches it for judging
	Submit(ctx context.Context, p domain.Principal, req SubmitRequest) (*Accepted, error)

	// Run dispatches an ungraded run under an ephemeral id
	Run(ctx context.Context, p domain.Principal, req RunRequest) (*Accepted, error)

	// RunReference dispatches a privileged run against the problem's reference data
	RunReference(ctx context.Context, p domain.Principal, req RunRequest) (*Accepted, error)

	// History lists the caller's submissions, newest first
	History(ctx context.Context, p domain.Principal) ([]*domain.Submission, error)
}
