package problemrepository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
)

func TestGetProblem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewProblemRepository(sqlx.NewDb(db, "postgres"), logging.NopLogger{}, "contest")

	mock.ExpectQuery(`FROM contest\.problems`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "title", "points", "test_case_path", "solution_path"}).
			AddRow(3, 1, "A+B", 100, "tests/3", ""))

	p, err := repo.GetProblem(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 100, p.Points)
	assert.Equal(t, "tests/3", p.TestCasePath)

	mock.ExpectQuery(`FROM contest\.problems`).
		WithArgs(int64(4)).
		WillReturnError(sql.ErrNoRows)

	p, err = repo.GetProblem(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewProblemRepository(sqlx.NewDb(db, "postgres"), logging.NopLogger{}, "")

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM public\.events WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_time", "end_time"}).AddRow(1, "Finals", start, nil))

	e, err := repo.GetEvent(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, e.StartAt)
	assert.True(t, start.Equal(*e.StartAt))
	assert.Nil(t, e.EndAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProblemsByEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewProblemRepository(sqlx.NewDb(db, "postgres"), logging.NopLogger{}, "")

	mock.ExpectQuery(`FROM public\.problems\s+WHERE event_id = \$1\s+ORDER BY id`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "title", "points", "test_case_path", "solution_path"}).
			AddRow(3, 1, "A+B", 100, "tests/3", "").
			AddRow(4, 1, "Max", 50, "tests/4", "sol/4"))

	problems, err := repo.ListProblemsByEvent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "Max", problems[1].Title)
	assert.Equal(t, 50, problems[1].Points)
	assert.NoError(t, mock.ExpectationsWereMet())
}
