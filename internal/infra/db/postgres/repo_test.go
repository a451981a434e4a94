package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

func setupDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users .* VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7\)`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &domainusers.User{ID: "u-1", Email: "a@b.io"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisRepository_SaveAndGet(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec(`INSERT INTO analyses .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("an-1", "up-1", "u-1", "info", "sum", 100, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Save(ctx, &domainanalyses.Analysis{
		ID: "an-1", UploadID: "up-1", UserID: "u-1",
		Result: domainanalyses.Result{LicensingInfo: "info", LicensingSummary: "sum", RiskScore: 100},
	}))

	cols := []string{"id", "upload_id", "user_id", "licensing_info", "licensing_summary", "risk_score", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM analyses WHERE id=\$1`).
		WithArgs("an-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("an-1", "up-1", "u-1", "info", "sum", 100, now, now))
	a, err := repo.Get(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, "sum", a.LicensingSummary)

	mock.ExpectQuery(`FROM analyses WHERE id=\$1`).WithArgs("none").WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.Get(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepository_Get(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewRequestRepository(db)

	cols := []string{"id", "user_id", "upload_id", "question", "answer", "created_at", "file_name", "file_type"}
	mock.ExpectQuery(`WHERE r.id=\$1`).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("r-1", "u-1", "up-1", "q", "a", time.Now(), "v.mp4", "VIDEO"))

	req, err := repo.Get(context.Background(), "r-1")
	require.NoError(t, err)
	require.NotNil(t, req.Upload)
	assert.Equal(t, "v.mp4", req.Upload.FileName)
	require.NoError(t, mock.ExpectationsWereMet())
}
