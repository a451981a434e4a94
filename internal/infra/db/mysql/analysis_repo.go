package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, upload_id, user_id, licensing_info, licensing_summary, risk_score, created_at, updated_at`

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domainanalyses.Analysis) error {
	const q = `
INSERT INTO analyses (` + analysisColumns + `)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  licensing_info=VALUES(licensing_info), licensing_summary=VALUES(licensing_summary),
  risk_score=VALUES(risk_score), updated_at=VALUES(updated_at);`
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.UploadID, a.UserID, a.LicensingInfo, a.LicensingSummary, a.RiskScore, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, id domainanalyses.AnalysisID) (*domainanalyses.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE id=? LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListByUser returns every analysis of the user's uploads ordered by created_at desc
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string) ([]*domainanalyses.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE user_id=? ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domainanalyses.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestByUpload returns the latest analysis for an upload, or nil when there is none
func (r *AnalysisRepository) LatestByUpload(ctx context.Context, uploadID string) (*domainanalyses.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE upload_id=? ORDER BY created_at DESC, id DESC LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, uploadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AnalysisRepository) Delete(ctx context.Context, id domainanalyses.AnalysisID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=?;`, id)
	return err
}

func (r *AnalysisRepository) DeleteByUpload(ctx context.Context, uploadID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE upload_id=?;`, uploadID)
	return err
}

func scanAnalysis(row rowScanner) (*domainanalyses.Analysis, error) {
	var a domainanalyses.Analysis
	if err := row.Scan(
		&a.ID, &a.UploadID, &a.UserID, &a.LicensingInfo, &a.LicensingSummary, &a.RiskScore, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
