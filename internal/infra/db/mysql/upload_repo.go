package mysql

import (
	"context"
	"database/sql"
	"time"

	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

type UploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

const uploadColumns = `id, user_id, file_type, file_name, object_key, file_url, content_type, size_bytes, created_at, updated_at`

// Save insert/update Upload record
func (r *UploadRepository) Save(ctx context.Context, u *domainuploads.Upload) error {
	const q = `
INSERT INTO uploads (` + uploadColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 file_name=VALUES(file_name), object_key=VALUES(object_key), file_url=VALUES(file_url),
 content_type=VALUES(content_type), size_bytes=VALUES(size_bytes), updated_at=VALUES(updated_at);`
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.UserID, u.FileType, stringOrDash(u.FileName), u.ObjectKey, u.FileURL,
		u.ContentType, u.SizeBytes, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *UploadRepository) Get(ctx context.Context, id domainuploads.UploadID) (*domainuploads.Upload, error) {
	const q = `SELECT ` + uploadColumns + ` FROM uploads WHERE id=? LIMIT 1;`
	u, err := scanUpload(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListByUser returns the user's uploads, newest first
func (r *UploadRepository) ListByUser(ctx context.Context, userID string) ([]*domainuploads.Upload, error) {
	const q = `SELECT ` + uploadColumns + ` FROM uploads WHERE user_id=? ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domainuploads.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UploadRepository) Delete(ctx context.Context, id domainuploads.UploadID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id=?;`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*domainuploads.Upload, error) {
	var u domainuploads.Upload
	if err := row.Scan(
		&u.ID, &u.UserID, &u.FileType, &u.FileName, &u.ObjectKey, &u.FileURL,
		&u.ContentType, &u.SizeBytes, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
