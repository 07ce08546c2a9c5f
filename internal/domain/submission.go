package domain

import "time"

// Submission is a ledger row for a graded attempt.
type Submission struct {
	ID             int64      `db:"id" json:"id"`
	OwnerKind      OwnerKind  `db:"owner_kind" json:"owner_kind"`
	OwnerID        int64      `db:"owner_id" json:"owner_id"`
	ProblemID      int64      `db:"problem_id" json:"problem_id"`
	EventID        int64      `db:"event_id" json:"event_id"`
	Code           string     `db:"code" json:"code"`
	Language       string     `db:"language" json:"language"`
	Verdict        Verdict    `db:"result" json:"verdict"`
	ExecutionTime  float64    `db:"execution_time" json:"execution_time"`
	MemoryUsage    float64    `db:"memory_usage" json:"memory_usage"`
	FailedTestCase *string    `db:"failed_test_case" json:"failed_test_case,omitempty"`
	Message        *string    `db:"message" json:"message,omitempty"`
	SubmittedAt    time.Time  `db:"submitted_at" json:"submitted_at"`
	JudgedAt       *time.Time `db:"judged_at" json:"judged_at,omitempty"`
}

// NewPendingSubmission creates an unsaved submission awaiting judgement.
func NewPendingSubmission(kind OwnerKind, ownerID int64, problem *Problem, code, language string, at time.Time) *Submission {
	return &Submission{
		OwnerKind:   kind,
		OwnerID:     ownerID,
		ProblemID:   problem.ID,
		EventID:     problem.EventID,
		Code:        code,
		Language:    language,
		Verdict:     VerdictPending,
		SubmittedAt: at,
	}
}

func (s *Submission) JobRef() JobRef {
	return LedgerRef(s.ID)
}

// ApplyVerdict records the judged outcome and its diagnostics.
func (s *Submission) ApplyVerdict(v Verdict, diag Diagnostics, at time.Time) {
	s.Verdict = v
	s.Message = diag.Message
	s.FailedTestCase = diag.FailedTestCase
	if diag.ExecutionTime != nil {
		s.ExecutionTime = *diag.ExecutionTime
	}
	if diag.MemoryUsage != nil {
		s.MemoryUsage = *diag.MemoryUsage
	}
	judged := at
	s.JudgedAt = &judged
}

type SubmissionTable struct {
	ID             string
	OwnerKind      string
	OwnerID        string
	ProblemID      string
	EventID        string
	Code           string
	Language       string
	Verdict        string
	ExecutionTime  string
	MemoryUsage    string
	FailedTestCase string
	Message        string
	SubmittedAt    string
	JudgedAt       string
}

func (t SubmissionTable) TableName() string {
	return "submissions"
}

// Columns lists every column in struct order.
func (t SubmissionTable) Columns() []string {
	return []string{
		t.ID, t.OwnerKind, t.OwnerID, t.ProblemID, t.EventID, t.Code, t.Language, t.Verdict,
		t.ExecutionTime, t.MemoryUsage, t.FailedTestCase, t.Message, t.SubmittedAt, t.JudgedAt,
	}
}

func GetSubmissionTable() SubmissionTable {
	return SubmissionTable{
		ID:             "id",
		OwnerKind:      "owner_kind",
		OwnerID:        "owner_id",
		ProblemID:      "problem_id",
		EventID:        "event_id",
		Code:           "code",
		Language:       "language",
		Verdict:        "result",
		ExecutionTime:  "execution_time",
		MemoryUsage:    "memory_usage",
		FailedTestCase: "failed_test_case",
		Message:        "message",
		SubmittedAt:    "submitted_at",
		JudgedAt:       "judged_at",
	}
}
