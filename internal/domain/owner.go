package domain

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/judge-relay.net/internal/static/errs"
)

// OwnerKind is the entity that accumulates score.
type OwnerKind string

const (
	OwnerKindTeam OwnerKind = "team"
	OwnerKindUser OwnerKind = "user"
)

func ParseOwnerKind(s string) (OwnerKind, error) {
	switch OwnerKind(strings.ToLower(strings.TrimSpace(s))) {
	case OwnerKindTeam:
		return OwnerKindTeam, nil
	case OwnerKindUser:
		return OwnerKindUser, nil
	}
	return "", errs.Validation("unknown owner kind %q", s)
}

// TableName is the aggregate table for the kind. Only these two values are
// ever interpolated into SQL.
func (k OwnerKind) TableName() string {
	if k == OwnerKindUser {
		return "users"
	}
	return "teams"
}

func (k OwnerKind) NameColumn() string {
	if k == OwnerKindUser {
		return "username"
	}
	return "team_name"
}

// OwnerAggregate holds the scoring counters of a team or user.
type OwnerAggregate struct {
	Kind               OwnerKind  `db:"-" json:"kind"`
	ID                 int64      `db:"id" json:"id"`
	EventID            int64      `db:"event_id" json:"event_id"`
	Name               string     `db:"name" json:"name"`
	Score              int        `db:"score" json:"score"`
	CorrectSubmissions int        `db:"correct_submission" json:"correct_submission"`
	WrongSubmissions   int        `db:"wrong_submission" json:"wrong_submission"`
	FirstSolveAt       *time.Time `db:"first_solve_time" json:"first_solve_time,omitempty"`
}

// ApplyVerdict updates the counters for one judged submission worth points.
// alreadySolved must reflect state before this submission. It returns true
// when the problem was credited.
func (o *OwnerAggregate) ApplyVerdict(v Verdict, points int, alreadySolved bool, at time.Time) bool {
	if !v.IsAccepted() {
		o.WrongSubmissions++
		return false
	}

	if o.FirstSolveAt == nil {
		solved := at
		o.FirstSolveAt = &solved
	}
	if alreadySolved {
		return false
	}

	o.Score += points
	o.CorrectSubmissions++
	return true
}

// Accuracy is correct / (correct + wrong) as a percentage with two decimals.
func (o *OwnerAggregate) Accuracy() string {
	total := o.CorrectSubmissions + o.WrongSubmissions
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(o.CorrectSubmissions)*100/float64(total))
}

// RanksBefore orders owners by score desc, first solve asc (unset last) and
// wrong submissions asc.
func (o *OwnerAggregate) RanksBefore(other *OwnerAggregate) bool {
	if o.Score != other.Score {
		return o.Score > other.Score
	}
	switch {
	case o.FirstSolveAt != nil && other.FirstSolveAt == nil:
		return true
	case o.FirstSolveAt == nil && other.FirstSolveAt != nil:
		return false
	case o.FirstSolveAt != nil && !o.FirstSolveAt.Equal(*other.FirstSolveAt):
		return o.FirstSolveAt.Before(*other.FirstSolveAt)
	}
	return o.WrongSubmissions < other.WrongSubmissions
}
