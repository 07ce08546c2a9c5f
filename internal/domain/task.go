package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TaskClass selects the worker queue a job is pushed to.
type TaskClass string

const (
	TaskClassSubmit    TaskClass = "submit"
	TaskClassRun       TaskClass = "run"
	TaskClassReference TaskClass = "run-on-reference"
)

func (c TaskClass) Valid() bool {
	switch c {
	case TaskClassSubmit, TaskClassRun, TaskClassReference:
		return true
	}
	return false
}

// EventType is the type tag carried by result events for this class.
func (c TaskClass) EventType() string {
	switch c {
	case TaskClassRun:
		return "run"
	case TaskClassReference:
		return "reference"
	default:
		return "submit"
	}
}

// EphemeralPrefix returns the token prefix minted for ephemeral classes.
func (c TaskClass) EphemeralPrefix() string {
	if c == TaskClassReference {
		return EphemeralReferencePrefix
	}
	return EphemeralRunPrefix
}

// TaskRequest is what intake hands to the encoder.
type TaskRequest struct {
	JobID       JobRef
	SourceCode  string
	Language    string
	ProblemID   int64
	InputPath   string
	CustomInput *string
}

// TaskPayload is the task handed to the execution fleet. Text fields are
// base64 encoded so control characters survive every transport.
type TaskPayload struct {
	JobID          string
	CodeB64        string
	Language       string
	ProblemID      int64
	InputPath      string
	CustomInputB64 string
}

// workerTask is the JSON layout the execution workers read. submission_id is
// a number for ledger jobs and a string for run jobs.
type workerTask struct {
	SubmissionID   json.RawMessage `json:"submission_id"`
	Code           string          `json:"code"`
	Language       string          `json:"language"`
	ProblemID      int64           `json:"problem_id"`
	InputPath      string          `json:"inputPath"`
	CustomTestcase *string         `json:"customTestcase"`
}

func (p TaskPayload) MarshalJSON() ([]byte, error) {
	task := workerTask{
		Code:      p.CodeB64,
		Language:  p.Language,
		ProblemID: p.ProblemID,
		InputPath: p.InputPath,
	}
	if ref, err := ParseJobRef(p.JobID); err == nil && ref.IsLedger() {
		task.SubmissionID = json.RawMessage(strconv.FormatInt(ref.LedgerID(), 10))
	} else {
		id, err := json.Marshal(p.JobID)
		if err != nil {
			return nil, err
		}
		task.SubmissionID = id
	}
	if p.CustomInputB64 != "" {
		custom := p.CustomInputB64
		task.CustomTestcase = &custom
	}
	return json.Marshal(task)
}

func (p *TaskPayload) UnmarshalJSON(data []byte) error {
	var task workerTask
	if err := json.Unmarshal(data, &task); err != nil {
		return err
	}

	id := bytes.TrimSpace(task.SubmissionID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		p.JobID = ""
	case id[0] == '"':
		if err := json.Unmarshal(id, &p.JobID); err != nil {
			return err
		}
	default:
		n, err := strconv.ParseInt(string(id), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid submission_id %s", id)
		}
		p.JobID = strconv.FormatInt(n, 10)
	}

	p.CodeB64 = task.Code
	p.Language = task.Language
	p.ProblemID = task.ProblemID
	p.InputPath = task.InputPath
	p.CustomInputB64 = ""
	if task.CustomTestcase != nil {
		p.CustomInputB64 = *task.CustomTestcase
	}
	return nil
}
