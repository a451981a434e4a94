package postgres

import (
	"context"
	"database/sql"
	"time"

	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestSelect = `
SELECT r.id, r.user_id, r.upload_id, r.question, r.answer, r.created_at,
       u.file_name, u.file_type
FROM requests r
LEFT JOIN uploads u ON u.id = r.upload_id`

func (r *RequestRepository) Save(ctx context.Context, req *domainrequests.Request) error {
	const q = `
INSERT INTO requests (id, user_id, upload_id, question, answer, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q, req.ID, req.UserID, nullString(req.UploadID), req.Question, req.Answer, req.CreatedAt)
	return err
}

func (r *RequestRepository) Get(ctx context.Context, id domainrequests.RequestID) (*domainrequests.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, requestSelect+` WHERE r.id=$1 LIMIT 1;`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

func (r *RequestRepository) ListByUser(ctx context.Context, userID string) ([]*domainrequests.Request, error) {
	rows, err := r.db.QueryContext(ctx, requestSelect+` WHERE r.user_id=$1 ORDER BY r.created_at DESC, r.id DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domainrequests.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (*domainrequests.Request, error) {
	var (
		req                       domainrequests.Request
		uploadID, fileName, ftype sql.NullString
	)
	if err := row.Scan(&req.ID, &req.UserID, &uploadID, &req.Question, &req.Answer, &req.CreatedAt, &fileName, &ftype); err != nil {
		return nil, err
	}
	if uploadID.Valid {
		req.UploadID = uploadID.String
		if fileName.Valid {
			req.Upload = &domainuploads.Ref{
				ID:       domainuploads.UploadID(uploadID.String),
				FileName: fileName.String,
				FileType: domainuploads.FileType(ftype.String),
			}
		}
	}
	return &req, nil
}
