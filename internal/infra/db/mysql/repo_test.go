package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	domainusers "github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

func setupDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewUserRepository(db)

	t.Run("inserts user", func(t *testing.T) {
		u := &domainusers.User{ID: "u-1", Email: "a@b.io", Name: "a", PasswordHash: "h", Role: domainusers.RoleUser}
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("u-1", "a@b.io", "a", "h", "USER", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(context.Background(), u))
		assert.False(t, u.CreatedAt.IsZero())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		u := &domainusers.User{ID: "u-2", Email: "a@b.io", Role: domainusers.RoleUser}
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err := repo.Create(context.Background(), u)
		assert.ErrorIs(t, err, domain.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, email, name, password_hash, role, created_at, updated_at\s+FROM users WHERE email=\?`).
		WithArgs("a@b.io").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "role", "created_at", "updated_at"}).
			AddRow("u-1", "a@b.io", "a", "h", "ADMIN", now, now))

	u, err := repo.GetByEmail(context.Background(), "a@b.io")
	require.NoError(t, err)
	assert.Equal(t, domainusers.UserID("u-1"), u.ID)
	assert.Equal(t, domainusers.RoleAdmin, u.Role)

	mock.ExpectQuery(`FROM users WHERE email=\?`).WithArgs("none@b.io").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByEmail(context.Background(), "none@b.io")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func uploadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "file_type", "file_name", "object_key", "file_url", "content_type", "size_bytes", "created_at", "updated_at"})
}

func TestUploadRepository(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewUploadRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("save", func(t *testing.T) {
		u := &domainuploads.Upload{ID: "up-1", UserID: "u-1", FileType: domainuploads.FileTypeArticle, FileName: "a.txt", ObjectKey: "u-1/up-1/a.txt", FileURL: "http://m/a", ContentType: "text/plain", SizeBytes: 3}
		mock.ExpectExec(`INSERT INTO uploads .* ON DUPLICATE KEY UPDATE`).
			WithArgs("up-1", "u-1", "ARTICLE", "a.txt", "u-1/up-1/a.txt", "http://m/a", "text/plain", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		require.NoError(t, repo.Save(ctx, u))
	})

	t.Run("list", func(t *testing.T) {
		mock.ExpectQuery(`FROM uploads WHERE user_id=\? ORDER BY created_at DESC`).
			WithArgs("u-1").
			WillReturnRows(uploadRows().
				AddRow("up-2", "u-1", "IMAGE", "b.png", "k2", "url2", "image/png", 10, now, now).
				AddRow("up-1", "u-1", "ARTICLE", "a.txt", "k1", "url1", "text/plain", 3, now, now))
		list, err := repo.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, domainuploads.FileTypeImage, list[0].FileType)
	})

	t.Run("get missing", func(t *testing.T) {
		mock.ExpectQuery(`FROM uploads WHERE id=\?`).WithArgs("nope").WillReturnRows(uploadRows())
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM uploads WHERE id=\?`).WithArgs("up-1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Delete(ctx, "up-1"))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func analysisRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "upload_id", "user_id", "licensing_info", "licensing_summary", "risk_score", "created_at", "updated_at"})
}

func TestAnalysisRepository(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewAnalysisRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("save", func(t *testing.T) {
		a := &domainanalyses.Analysis{ID: "an-1", UploadID: "up-1", UserID: "u-1", Result: domainanalyses.Result{LicensingInfo: "info", LicensingSummary: "sum", RiskScore: 70}}
		mock.ExpectExec(`INSERT INTO analyses`).
			WithArgs("an-1", "up-1", "u-1", "info", "sum", 70, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		require.NoError(t, repo.Save(ctx, a))
		assert.False(t, a.UpdatedAt.IsZero())
	})

	t.Run("latest by upload", func(t *testing.T) {
		mock.ExpectQuery(`FROM analyses WHERE upload_id=\? ORDER BY created_at DESC, id DESC LIMIT 1`).
			WithArgs("up-1").
			WillReturnRows(analysisRows().AddRow("an-1", "up-1", "u-1", "info", "sum", 70, now, now))
		a, err := repo.LatestByUpload(ctx, "up-1")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, 70, a.RiskScore)
	})

	t.Run("latest by upload none", func(t *testing.T) {
		mock.ExpectQuery(`FROM analyses WHERE upload_id=\?`).WithArgs("up-9").WillReturnRows(analysisRows())
		a, err := repo.LatestByUpload(ctx, "up-9")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("get missing", func(t *testing.T) {
		mock.ExpectQuery(`FROM analyses WHERE id=\?`).WithArgs("x").WillReturnRows(analysisRows())
		_, err := repo.Get(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete by upload", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM analyses WHERE upload_id=\?`).WithArgs("up-1").WillReturnResult(sqlmock.NewResult(0, 2))
		require.NoError(t, repo.DeleteByUpload(ctx, "up-1"))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepository(t *testing.T) {
	db, mock := setupDB(t)
	repo := NewRequestRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("save without upload stores NULL", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO requests`).
			WithArgs("r-1", "u-1", nil, "What is fair use?", "answer", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		err := repo.Save(ctx, &domainrequests.Request{ID: "r-1", UserID: "u-1", Question: "What is fair use?", Answer: "answer"})
		require.NoError(t, err)
	})

	t.Run("list joins upload ref", func(t *testing.T) {
		cols := []string{"id", "user_id", "upload_id", "question", "answer", "created_at", "file_name", "file_type"}
		mock.ExpectQuery(`FROM requests r\s+LEFT JOIN uploads u ON u.id = r.upload_id WHERE r.user_id=\?`).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("r-2", "u-1", "up-1", "q2", "a2", now, "a.txt", "ARTICLE").
				AddRow("r-1", "u-1", nil, "q1", "a1", now, nil, nil))

		list, err := repo.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.NotNil(t, list[0].Upload)
		assert.Equal(t, "a.txt", list[0].Upload.FileName)
		assert.Equal(t, domainuploads.FileTypeArticle, list[0].Upload.FileType)
		assert.Nil(t, list[1].Upload)
		assert.Empty(t, list[1].UploadID)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
