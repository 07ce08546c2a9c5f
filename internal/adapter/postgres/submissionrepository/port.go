// Package submissionrepository is the PostgreSQL submission ledger.
package submissionrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var (
	_ secondary.SubmissionRepository = (*SubmissionRepository)(nil)
	_ secondary.LedgerStore          = (*SubmissionRepository)(nil)
)

// SubmissionRepository implements the ledger ports with PostgreSQL
type SubmissionRepository struct {
	db     *sqlx.DB
	logger primary.Logger
	schema string
}

// NewSubmissionRepository creates a new PostgreSQL submission repository
func NewSubmissionRepository(db *sqlx.DB, logger primary.Logger, schema string) *SubmissionRepository {
	if schema == "" {
		schema = "public"
	}
	return &SubmissionRepository{
		db:     db,
		logger: logger,
		schema: schema,
	}
}

func (r *SubmissionRepository) table(name string) string {
	return fmt.Sprintf("%s.%s", r.schema, name)
}

func selectColumns() string {
	return strings.Join(domain.GetSubmissionTable().Columns(), ", ")
}

// Create inserts a new submission and fills in its ID
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	tbl := domain.GetSubmissionTable()
	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s`,
		r.table(tbl.TableName()),
		tbl.OwnerKind, tbl.OwnerID, tbl.ProblemID, tbl.EventID, tbl.Code,
		tbl.Language, tbl.Verdict, tbl.ExecutionTime, tbl.MemoryUsage, tbl.SubmittedAt,
		tbl.ID,
	)

	err := r.db.QueryRowxContext(
		ctx,
		query,
		s.OwnerKind,
		s.OwnerID,
		s.ProblemID,
		s.EventID,
		s.Code,
		s.Language,
		s.Verdict,
		s.ExecutionTime,
		s.MemoryUsage,
		s.SubmittedAt,
	).Scan(&s.ID)
	if err != nil {
		r.logger.Error("Failed to create submission", "error", err)
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// Get retrieves a submission by ID
func (r *SubmissionRepository) Get(ctx context.Context, id int64) (*domain.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns(), r.table(domain.GetSubmissionTable().TableName()))

	var s domain.Submission
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get submission", "submissionId", id, "error", err)
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &s, nil
}

func (r *SubmissionRepository) ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64, limit int) ([]*domain.Submission, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY id DESC
		LIMIT $3`,
		selectColumns(), r.table(domain.GetSubmissionTable().TableName()))

	submissions := make([]*domain.Submission, 0)
	if err := r.db.SelectContext(ctx, &submissions, query, kind, ownerID, limit); err != nil {
		r.logger.Error("Failed to list submissions", "owner", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionRepository) CountStalePending(ctx context.Context, before time.Time) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE result = $1 AND submitted_at < $2`,
		r.table(domain.GetSubmissionTable().TableName()))

	var count int
	if err := r.db.GetContext(ctx, &count, query, domain.VerdictPending, before); err != nil {
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}
	return count, nil
}

func (r *SubmissionRepository) ListSolved(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]domain.SolvedProblem, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT owner_id, problem_id FROM %s
		WHERE owner_kind = $1 AND event_id = $2 AND result = $3
		ORDER BY owner_id, problem_id`,
		r.table(domain.GetSubmissionTable().TableName()))

	solved := make([]domain.SolvedProblem, 0)
	if err := r.db.SelectContext(ctx, &solved, query, kind, eventID, domain.VerdictAccepted); err != nil {
		r.logger.Error("Failed to list solved problems", "eventId", eventID, "error", err)
		return nil, fmt.Errorf("failed to list solved problems: %w", err)
	}
	return solved, nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken with
// FOR UPDATE make a concurrent reconciliation of the same owner wait and then
// read the committed state.
func (r *SubmissionRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx secondary.LedgerTx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &ledgerTx{tx: tx, repo: r}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx   *sqlx.Tx
	repo *SubmissionRepository
}

func (t *ledgerTx) LockSubmission(ctx context.Context, id int64) (*domain.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`,
		selectColumns(), t.repo.table(domain.GetSubmissionTable().TableName()))

	var s domain.Submission
	if err := t.tx.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (t *ledgerTx) LockOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error) {
	query := fmt.Sprintf(`
		SELECT id, event_id, score, correct_submission, wrong_submission, first_solve_time
		FROM %s WHERE id = $1 FOR UPDATE`, t.repo.table(kind.TableName()))

	var owner domain.OwnerAggregate
	if err := t.tx.GetContext(ctx, &owner, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	owner.Kind = kind
	return &owner, nil
}

func (t *ledgerTx) ProblemPoints(ctx context.Context, problemID int64) (int, error) {
	query := fmt.Sprintf(`SELECT score FROM %s WHERE id = $1`, t.repo.table("problems"))

	var points int
	if err := t.tx.GetContext(ctx, &points, query, problemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.ErrProblemNotFound
		}
		return 0, err
	}
	return points, nil
}

func (t *ledgerTx) HasAcceptedExcluding(ctx context.Context, kind domain.OwnerKind, ownerID, problemID, excludeID int64) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE owner_kind = $1 AND owner_id = $2 AND problem_id = $3 AND result = $4 AND id <> $5
		)`, t.repo.table(domain.GetSubmissionTable().TableName()))

	var exists bool
	if err := t.tx.GetContext(ctx, &exists, query, kind, ownerID, problemID, domain.VerdictAccepted, excludeID); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *ledgerTx) SaveOwner(ctx context.Context, owner *domain.OwnerAggregate) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET score = $1, correct_submission = $2, wrong_submission = $3, first_solve_time = $4
		WHERE id = $5`, t.repo.table(owner.Kind.TableName()))

	res, err := t.tx.ExecContext(ctx, query,
		owner.Score, owner.CorrectSubmissions, owner.WrongSubmissions, owner.FirstSolveAt, owner.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, fmt.Sprintf("%s %d", owner.Kind, owner.ID))
}

func (t *ledgerTx) SaveVerdict(ctx context.Context, s *domain.Submission) error {
	tbl := domain.GetSubmissionTable()
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = $5, %s = $6
		WHERE id = $7`,
		t.repo.table(tbl.TableName()),
		tbl.Verdict, tbl.Message, tbl.FailedTestCase, tbl.ExecutionTime, tbl.MemoryUsage, tbl.JudgedAt)

	res, err := t.tx.ExecContext(ctx, query,
		s.Verdict, s.Message, s.FailedTestCase, s.ExecutionTime, s.MemoryUsage, s.JudgedAt, s.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, fmt.Sprintf("submission %d", s.ID))
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("expected to update %s, updated %d rows", what, n)
	}
	return nil
}
