package defs

import "gitlab.com/judge-relay.net/internal/domain"

// Protocol data structures
type (
	// JobAssignData represents the data sent during job assignment
	JobAssignData struct {
		Class   domain.TaskClass   `json:"class"`
		Payload domain.TaskPayload `json:"payload"`
	}

	// JobResultData represents the verdict a worker reports for a job
	JobResultData struct {
		JobID          string   `json:"job_id"`
		Status         string   `json:"status"`
		Message        *string  `json:"message,omitempty"`
		FailedTestCase *string  `json:"failed_test_case,omitempty"`
		Output         *string  `json:"output,omitempty"`
		ExpectedOutput *string  `json:"expected_output,omitempty"`
		ExecutionTime  *float64 `json:"execution_time,omitempty"`
		MemoryUsage    *float64 `json:"memory_usage,omitempty"`
	}
)

func (d JobResultData) Diagnostics() domain.Diagnostics {
	return domain.Diagnostics{
		Message:        d.Message,
		FailedTestCase: d.FailedTestCase,
		Output:         d.Output,
		ExpectedOutput: d.ExpectedOutput,
		ExecutionTime:  d.ExecutionTime,
		MemoryUsage:    d.MemoryUsage,
	}
}
