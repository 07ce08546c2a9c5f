package webhook

import (
	"bytes"
	"encoding/json"
	"strconv"

	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/domain"
)

// jobID accepts the id as a JSON string or number
type jobID string

func (j *jobID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*j = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*j = jobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return err
	}
	*j = jobID(n.String())
	return nil
}

// CallbackRequest is the verdict report posted by the execution fleet.
// submission_id and user_output are accepted as older names of job_id and
// output.
type CallbackRequest struct {
	JobID          jobID    `json:"job_id"`
	SubmissionID   jobID    `json:"submission_id"`
	Status         string   `json:"status"`
	Message        *string  `json:"message,omitempty"`
	FailedTestCase *string  `json:"failed_test_case,omitempty"`
	Output         *string  `json:"output,omitempty"`
	UserOutput     *string  `json:"user_output,omitempty"`
	ExpectedOutput *string  `json:"expected_output,omitempty"`
	ExecutionTime  *float64 `json:"execution_time,omitempty"`
	MemoryUsage    *float64 `json:"memory_usage,omitempty"`
}

func (r CallbackRequest) toCallback() callback.Callback {
	id := string(r.JobID)
	if id == "" {
		id = string(r.SubmissionID)
	}
	output := r.Output
	if output == nil {
		output = r.UserOutput
	}
	return callback.Callback{
		JobID:  id,
		Status: r.Status,
		Diagnostics: domain.Diagnostics{
			Message:        r.Message,
			FailedTestCase: r.FailedTestCase,
			Output:         output,
			ExpectedOutput: r.ExpectedOutput,
			ExecutionTime:  r.ExecutionTime,
			MemoryUsage:    r.MemoryUsage,
		},
	}
}

type CallbackResponse struct {
	Message   string         `json:"message"`
	JobID     string         `json:"job_id"`
	Verdict   domain.Verdict `json:"verdict"`
	Applied   bool           `json:"applied"`
	Delivered int            `json:"delivered"`
}
