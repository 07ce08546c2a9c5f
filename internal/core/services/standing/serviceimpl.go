package standing

import (
	"context"
	"fmt"
	"sort"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ IStandingService = (*StandingService)(nil)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type StandingService struct {
	owners      secondary.OwnerRepository
	problems    secondary.ProblemRepository
	submissions secondary.SubmissionRepository
	kind        domain.OwnerKind
	logger      primary.Logger
}

func NewStandingService(
	owners secondary.OwnerRepository,
	problems secondary.ProblemRepository,
	submissions secondary.SubmissionRepository,
	kind domain.OwnerKind,
	logger primary.Logger,
) *StandingService {
	return &StandingService{
		owners:      owners,
		problems:    problems,
		submissions: submissions,
		kind:        kind,
		logger:      logger,
	}
}

func (s *StandingService) rankedOwners(ctx context.Context, eventID int64) ([]*domain.OwnerAggregate, error) {
	owners, err := s.owners.ListOwnersByEvent(ctx, s.kind, eventID)
	if err != nil {
		s.logger.Error("Failed to list owners", "eventId", eventID, "error", err)
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	sort.SliceStable(owners, func(i, j int) bool { return owners[i].RanksBefore(owners[j]) })
	return owners, nil
}

func (s *StandingService) GetStanding(ctx context.Context, p domain.Principal) (*Standing, error) {
	ownerID, err := p.OwnerID(s.kind)
	if err != nil {
		return nil, err
	}

	owners, err := s.rankedOwners(ctx, p.EventID)
	if err != nil {
		return nil, err
	}

	for i, o := range owners {
		if o.ID != ownerID {
			continue
		}
		return &Standing{
			OwnerKind:          s.kind,
			OwnerID:            o.ID,
			Name:               o.Name,
			Score:              o.Score,
			CorrectSubmissions: o.CorrectSubmissions,
			WrongSubmissions:   o.WrongSubmissions,
			Accuracy:           o.Accuracy(),
			Rank:               i + 1,
			TotalOwners:        len(owners),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s %d is not registered for event %d", errs.ErrForbidden, s.kind, ownerID, p.EventID)
}

// GetLeaderboard lists owners in rank order with the points earned on each
// problem of the event. Columns are q1..qN in problem id order.
func (s *StandingService) GetLeaderboard(ctx context.Context, eventID int64, page, limit int) (*Leaderboard, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	problems, err := s.problems.ListProblemsByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("Failed to list problems", "eventId", eventID, "error", err)
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	solved, err := s.submissions.ListSolved(ctx, s.kind, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solved problems: %w", err)
	}
	owners, err := s.rankedOwners(ctx, eventID)
	if err != nil {
		return nil, err
	}

	board := &Leaderboard{
		EventID:   eventID,
		OwnerKind: s.kind,
		Problems:  make([]LeaderboardProblem, 0, len(problems)),
		Rows:      make([]LeaderboardRow, 0, limit),
		Page:      page,
		Limit:     limit,
		Total:     len(owners),
	}
	columns := make(map[int64]string, len(problems))
	for i, p := range problems {
		col := fmt.Sprintf("q%d", i+1)
		columns[p.ID] = col
		board.Problems = append(board.Problems, LeaderboardProblem{ID: p.ID, Title: p.Title, Points: p.Points, Column: col})
	}

	solvedBy := make(map[domain.SolvedProblem]bool, len(solved))
	for _, sp := range solved {
		solvedBy[sp] = true
	}

	start := (page - 1) * limit
	if start > len(owners) {
		start = len(owners)
	}
	end := start + limit
	if end > len(owners) {
		end = len(owners)
	}

	for i, o := range owners[start:end] {
		row := LeaderboardRow{
			Rank:               start + i + 1,
			OwnerID:            o.ID,
			Name:               o.Name,
			Scores:             make(map[string]int, len(problems)),
			TotalScore:         o.Score,
			CorrectSubmissions: o.CorrectSubmissions,
			WrongSubmissions:   o.WrongSubmissions,
		}
		for _, p := range problems {
			points := 0
			if solvedBy[domain.SolvedProblem{OwnerID: o.ID, ProblemID: p.ID}] {
				points = p.Points
			}
			row.Scores[columns[p.ID]] = points
		}
		board.Rows = append(board.Rows, row)
	}
	return board, nil
}
