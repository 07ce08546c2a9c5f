package problemrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

var _ secondary.ProblemRepository = (*ProblemRepository)(nil)

type ProblemRepository struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

func NewProblemRepository(db *sqlx.DB, logger primary.Logger, schema string) *ProblemRepository {
	if schema == "" {
		schema = "public"
	}
	return &ProblemRepository{db: db, logger: logger, schema: schema}
}

// GetProblem returns nil, nil when the problem does not exist
func (r *ProblemRepository) GetProblem(ctx context.Context, id int64) (*domain.Problem, error) {
	query := fmt.Sprintf(`
		SELECT id, event_id, title, score AS points,
			COALESCE(test_case_path, '') AS test_case_path,
			COALESCE(solution_path, '') AS solution_path
		FROM %s.problems
		WHERE id = $1`, r.schema)

	var p domain.Problem
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get problem", "problemId", id, "error", err)
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return &p, nil
}

// GetEvent returns nil, nil when the event does not exist
func (r *ProblemRepository) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT id, name, start_time, end_time FROM %s.events WHERE id = $1`, r.schema)

	var e domain.Event
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get event", "eventId", id, "error", err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *ProblemRepository) ListProblemsByEvent(ctx context.Context, eventID int64) ([]*domain.Problem, error) {
	query := fmt.Sprintf(`
		SELECT id, event_id, title, score AS points,
			COALESCE(test_case_path, '') AS test_case_path,
			COALESCE(solution_path, '') AS solution_path
		FROM %s.problems
		WHERE event_id = $1
		ORDER BY id`, r.schema)

	problems := make([]*domain.Problem, 0)
	if err := r.db.SelectContext(ctx, &problems, query, eventID); err != nil {
		r.logger.Error("Failed to list problems", "eventId", eventID, "error", err)
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	return problems, nil
}
