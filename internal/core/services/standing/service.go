package standing

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

type Standing struct {
	OwnerKind          domain.OwnerKind `json:"owner_kind"`
	OwnerID            int64            `json:"owner_id"`
	Name               string           `json:"name"`
	Score              int              `json:"score"`
	CorrectSubmissions int              `json:"correct_submission"`
	WrongSubmissions   int              `json:"wrong_submission"`
	Accuracy           string           `json:"accuracy"`
	Rank               int              `json:"rank"`
	TotalOwners        int              `json:"total"`
}

// LeaderboardProblem is one scored column of the leaderboard.
type LeaderboardProblem struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Points int    `json:"points"`
	Column string `json:"column"`
}

type LeaderboardRow struct {
	Rank               int            `json:"rank"`
	OwnerID            int64          `json:"owner_id"`
	Name               string         `json:"name"`
	Scores             map[string]int `json:"scores"`
	TotalScore         int            `json:"total_score"`
	CorrectSubmissions int            `json:"correct_submission"`
	WrongSubmissions   int            `json:"wrong_submission"`
}

type Leaderboard struct {
	EventID   int64                `json:"event_id"`
	OwnerKind domain.OwnerKind     `json:"owner_kind"`
	Problems  []LeaderboardProblem `json:"problems"`
	Rows      []LeaderboardRow     `json:"rows"`
	Page      int                  `json:"page"`
	Limit     int                  `json:"limit"`
	Total     int                  `json:"total"`
}

type IStandingService interface {
	GetStanding(ctx context.Context, p domain.Principal) (*Standing, error)
	// GetLeaderboard ranks every owner of the event, one page at a time
	GetLeaderboard(ctx context.Context, eventID int64, page, limit int) (*Leaderboard, error)
}
