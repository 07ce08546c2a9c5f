package domain

import (
	"time"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

type Problem struct {
	ID           int64  `db:"id" json:"id"`
	EventID      int64  `db:"event_id" json:"event_id"`
	Title        string `db:"title" json:"title"`
	Points       int    `db:"points" json:"points"`
	TestCasePath string `db:"test_case_path" json:"test_case_path"`
	SolutionPath string `db:"solution_path" json:"solution_path"`
}

// SolvedProblem marks an owner holding an Accepted submission for a problem.
type SolvedProblem struct {
	OwnerID   int64 `db:"owner_id"`
	ProblemID int64 `db:"problem_id"`
}

type Event struct {
	ID      int64      `db:"id" json:"id"`
	Name    string     `db:"name" json:"name"`
	StartAt *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndAt   *time.Time `db:"end_time" json:"end_time,omitempty"`
}

// CheckOpen fails unless now lies inside the event window. An event without
// a start time has not started.
func (e *Event) CheckOpen(now time.Time) error {
	if e.StartAt == nil || now.Before(*e.StartAt) {
		return errs.ErrEventNotStarted
	}
	if e.EndAt != nil && now.After(*e.EndAt) {
		return errs.ErrEventEnded
	}
	return nil
}
