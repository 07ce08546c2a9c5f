package ownerrepository

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

var _ secondary.OwnerRepository = (*OwnerRepository)(nil)

// OwnerRepository reads team or user aggregates
type OwnerRepository struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

func NewOwnerRepository(db *sqlx.DB, logger primary.Logger, schema string) *OwnerRepository {
	if schema == "" {
		schema = "public"
	}
	return &OwnerRepository{db: db, logger: logger, schema: schema}
}

func (r *OwnerRepository) selectQuery(kind domain.OwnerKind, where string) string {
	return fmt.Sprintf(`
		SELECT id, event_id, %s AS name, score, correct_submission, wrong_submission, first_solve_time
		FROM %s.%s
		WHERE %s`, kind.NameColumn(), r.schema, kind.TableName(), where)
}

func (r *OwnerRepository) GetOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error) {
	var owner domain.OwnerAggregate
	if err := r.db.GetContext(ctx, &owner, r.selectQuery(kind, "id = $1"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get owner", "kind", kind, "id", id, "error", err)
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	owner.Kind = kind
	return &owner, nil
}

func (r *OwnerRepository) ListOwnersByEvent(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]*domain.OwnerAggregate, error) {
	owners := make([]*domain.OwnerAggregate, 0)
	if err := r.db.SelectContext(ctx, &owners, r.selectQuery(kind, "event_id = $1"), eventID); err != nil {
		r.logger.Error("Failed to list owners", "kind", kind, "eventId", eventID, "error", err)
		return nil, fmt.Errorf("failed to list %s: %w", kind.TableName(), err)
	}
	for _, o := range owners {
		o.Kind = kind
	}
	return owners, nil
}
