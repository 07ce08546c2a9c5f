package domain

import (
	"fmt"
	"strings"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

// Verdict is the judged outcome stored on a submission.
type Verdict string

const (
	VerdictPending             Verdict = "Pending"
	VerdictAccepted            Verdict = "Accepted"
	VerdictWrongAnswer         Verdict = "Wrong Answer"
	VerdictTimeLimitExceeded   Verdict = "Time Limit Exceeded"
	VerdictMemoryLimitExceeded Verdict = "Memory Limit Exceeded"
	VerdictRuntimeError        Verdict = "Runtime Error"
	VerdictCompilationError    Verdict = "Compilation Error"
	VerdictFailed              Verdict = "Failed"
	// VerdictExecuted is only produced for run jobs that finished without a
	// correctness check.
	VerdictExecuted Verdict = "Executed"
)

var verdictAliases = map[string]Verdict{
	"pending":               VerdictPending,
	"accepted":              VerdictAccepted,
	"ac":                    VerdictAccepted,
	"wrong answer":          VerdictWrongAnswer,
	"wa":                    VerdictWrongAnswer,
	"time limit exceeded":   VerdictTimeLimitExceeded,
	"tle":                   VerdictTimeLimitExceeded,
	"timeout":               VerdictTimeLimitExceeded,
	"memory limit exceeded": VerdictMemoryLimitExceeded,
	"mle":                   VerdictMemoryLimitExceeded,
	"runtime error":         VerdictRuntimeError,
	"re":                    VerdictRuntimeError,
	"compilation error":     VerdictCompilationError,
	"compile error":         VerdictCompilationError,
	"ce":                    VerdictCompilationError,
	"failed":                VerdictFailed,
	"system error":          VerdictFailed,
	"executed successfully": VerdictExecuted,
	"executed":              VerdictExecuted,
	"success":               VerdictExecuted,
}

// ParseVerdict maps a worker status string onto a Verdict. Matching ignores
// case and treats '_' and '-' as spaces, so "compilation_error" and
// "Compilation Error" are the same status.
func ParseVerdict(status string) (Verdict, error) {
	key := strings.ToLower(strings.TrimSpace(status))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	v, ok := verdictAliases[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", errs.ErrUnknownVerdict, status)
	}
	return v, nil
}

// IsTerminal reports whether no further transition is allowed.
func (v Verdict) IsTerminal() bool {
	return v != VerdictPending && v != ""
}

func (v Verdict) IsAccepted() bool {
	return v == VerdictAccepted
}

// IsJudged reports whether v is a verdict a graded submission may end in.
func (v Verdict) IsJudged() bool {
	return v.IsTerminal() && v != VerdictExecuted
}

func (v Verdict) String() string {
	return string(v)
}
