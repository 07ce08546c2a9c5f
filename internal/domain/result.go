package domain

import "time"

// Diagnostics carries the optional details reported with a verdict.
type Diagnostics struct {
	Message        *string
	FailedTestCase *string
	Output         *string
	ExpectedOutput *string
	ExecutionTime  *float64
	MemoryUsage    *float64
}

// ResultEvent is pushed to live subscribers of a job. It is never retained.
type ResultEvent struct {
	Type           string  `json:"type"`
	JobID          string  `json:"job_id"`
	Verdict        Verdict `json:"verdict"`
	Message        *string `json:"message,omitempty"`
	FailedTestCase *string `json:"failed_test_case,omitempty"`
	Output         *string `json:"output,omitempty"`
	ExpectedOutput *string `json:"expected_output,omitempty"`
}

// StatusView is the polling representation of a job.
type StatusView struct {
	JobID          string   `json:"job_id"`
	Verdict        Verdict  `json:"verdict"`
	FailedTestCase *string  `json:"failed_test_case,omitempty"`
	Message        *string  `json:"message,omitempty"`
	ExecutionTime  *float64 `json:"execution_time,omitempty"`
	MemoryUsage    *float64 `json:"memory_usage,omitempty"`
	Output         *string  `json:"output,omitempty"`
	ExpectedOutput *string  `json:"expected_output,omitempty"`
}

// EphemeralResult is the short-lived state of a run job.
type EphemeralResult struct {
	JobID          string    `json:"job_id"`
	Class          TaskClass `json:"class"`
	Verdict        Verdict   `json:"verdict"`
	Message        *string   `json:"message,omitempty"`
	FailedTestCase *string   `json:"failed_test_case,omitempty"`
	Output         *string   `json:"output,omitempty"`
	ExpectedOutput *string   `json:"expected_output,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewSubmitEvent(s *Submission, diag Diagnostics) ResultEvent {
	return ResultEvent{
		Type:           TaskClassSubmit.EventType(),
		JobID:          s.JobRef().String(),
		Verdict:        s.Verdict,
		Message:        s.Message,
		FailedTestCase: s.FailedTestCase,
		Output:         diag.Output,
		ExpectedOutput: diag.ExpectedOutput,
	}
}

func NewEphemeralEvent(r *EphemeralResult) ResultEvent {
	return ResultEvent{
		Type:           r.Class.EventType(),
		JobID:          r.JobID,
		Verdict:        r.Verdict,
		Message:        r.Message,
		FailedTestCase: r.FailedTestCase,
		Output:         r.Output,
		ExpectedOutput: r.ExpectedOutput,
	}
}

func (s *Submission) StatusView() *StatusView {
	view := &StatusView{
		JobID:          s.JobRef().String(),
		Verdict:        s.Verdict,
		FailedTestCase: s.FailedTestCase,
		Message:        s.Message,
	}
	if s.Verdict.IsTerminal() {
		execTime, mem := s.ExecutionTime, s.MemoryUsage
		view.ExecutionTime = &execTime
		view.MemoryUsage = &mem
	}
	return view
}

func (r *EphemeralResult) StatusView() *StatusView {
	return &StatusView{
		JobID:          r.JobID,
		Verdict:        r.Verdict,
		Message:        r.Message,
		FailedTestCase: r.FailedTestCase,
		Output:         r.Output,
		ExpectedOutput: r.ExpectedOutput,
	}
}
