package analyses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rightsdesk/internal/application"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/infra/extract"
)

// Analyzer runs the licensing analysis over extracted text. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, content string) domainanalyses.Result
}

// Service implements use-cases untuk Analysis
type Service struct {
	Repo            domainanalyses.Repository
	Uploads         domainuploads.Repository
	Store           domainuploads.ObjectStore
	Analyzer        Analyzer
	Clock           application.Clock
	Log             *zap.Logger
	MaxContentBytes int
}

// AnalyzeUpload fetches the stored file, extracts its text, runs the analysis and
// persists the result. Analyzer degradation is stored like any other result.
func (s *Service) AnalyzeUpload(ctx context.Context, userID string, uploadID domainuploads.UploadID) (*domainanalyses.Analysis, error) {
	u, err := s.Uploads.Get(ctx, uploadID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewClientError(domain.ErrNotFound, "Upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", uploadID, err)
	}
	if u.UserID != userID {
		return nil, domain.NewClientError(domain.ErrForbidden, "Not authorized to analyze this upload")
	}

	text, err := s.content(ctx, u)
	if err != nil {
		return nil, err
	}

	start := s.now()
	res := s.Analyzer.Analyze(ctx, text)

	now := s.now()
	a := &domainanalyses.Analysis{
		ID:        domainanalyses.AnalysisID(uuid.NewString()),
		UploadID:  string(u.ID),
		UserID:    u.UserID,
		Result:    res,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	s.logger().Info("analysis stored",
		zap.String("analysis_id", string(a.ID)),
		zap.String("upload_id", a.UploadID),
		zap.Int("risk_score", a.RiskScore),
		zap.Duration("took", now.Sub(start)),
	)
	return a, nil
}

func (s *Service) content(ctx context.Context, u *domainuploads.Upload) (string, error) {
	// media is described from metadata, no need to pull the object
	if u.FileType == domainuploads.FileTypeImage || u.FileType == domainuploads.FileTypeVideo {
		return extract.Text(u, nil, s.MaxContentBytes)
	}

	rc, err := s.Store.Get(ctx, u.ObjectKey)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NewClientError(domain.ErrNotFound, "File not found in storage")
	}
	if err != nil {
		return "", fmt.Errorf("fetch object %s: %w", u.ObjectKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", u.ObjectKey, err)
	}

	text, err := extract.Text(u, data, s.MaxContentBytes)
	if errors.Is(err, extract.ErrNoText) {
		return "", domain.NewClientError(domain.ErrInvalidInput, "File has no readable text")
	}
	if err != nil {
		s.logger().Warn("extract text", zap.String("upload_id", string(u.ID)), zap.Error(err))
		return "", domain.NewClientError(domain.ErrInvalidInput, "Unable to read file content")
	}
	return text, nil
}

func (s *Service) Get(ctx context.Context, userID string, id domainanalyses.AnalysisID) (*domainanalyses.Analysis, error) {
	return s.owned(ctx, userID, id, "Not authorized to access this analysis")
}

func (s *Service) List(ctx context.Context, userID string) ([]*domainanalyses.Analysis, error) {
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	if items == nil {
		items = []*domainanalyses.Analysis{}
	}
	return items, nil
}

func (s *Service) Delete(ctx context.Context, userID string, id domainanalyses.AnalysisID) error {
	if _, err := s.owned(ctx, userID, id, "Not authorized to delete this analysis"); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID string, id domainanalyses.AnalysisID, forbidden string) (*domainanalyses.Analysis, error) {
	a, err := s.Repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewClientError(domain.ErrNotFound, "Analysis not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	if a.UserID != userID {
		return nil, domain.NewClientError(domain.ErrForbidden, "%s", forbidden)
	}
	return a, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
