package uploads

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
)

// Service implements use-cases untuk Upload
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo     domainuploads.Repository
	Analyses domainanalyses.Repository
	Store    domainuploads.ObjectStore
	Clock    application.Clock
	Log      *zap.Logger
	MaxBytes int64
}

// Command untuk simpan file baru
type UploadCommand struct {
	UserID      string
	FileType    domainuploads.FileType
	FileName    string // already sanitized
	ContentType string
	Size        int64
	Body        io.Reader
}

// AnalysisSummary is the compact latest-analysis view attached to an upload.
type AnalysisSummary struct {
	ID               domainanalyses.AnalysisID `json:"id"`
	LicensingSummary string                    `json:"licensingSummary"`
	RiskScore        int                       `json:"riskScore"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

type UploadView struct {
	*domainuploads.Upload
	Analysis *AnalysisSummary `json:"analysis,omitempty"`
}

func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domainuploads.Upload, error) {
	if cmd.Body == nil || cmd.FileName == "" {
		return nil, domain.NewClientError(domain.ErrInvalidInput, "File and fileType are required")
	}
	if s.MaxBytes > 0 && cmd.Size > s.MaxBytes {
		return nil, domain.NewClientError(domain.ErrInvalidInput, "File exceeds the %d byte limit", s.MaxBytes)
	}

	now := s.now()
	u := &domainuploads.Upload{
		ID:          domainuploads.UploadID(uuid.NewString()),
		UserID:      cmd.UserID,
		FileType:    cmd.FileType,
		FileName:    cmd.FileName,
		ContentType: cmd.ContentType,
		SizeBytes:   cmd.Size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	u.ObjectKey = fmt.Sprintf("%s/%s/%s", u.UserID, u.ID, u.FileName)

	url, err := s.Store.Put(ctx, u.ObjectKey, cmd.Body, cmd.Size, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	u.FileURL = url

	if err := s.Repo.Save(ctx, u); err != nil {
		// jangan tinggalkan object yatim
		if derr := s.Store.Delete(ctx, u.ObjectKey); derr != nil {
			s.logger().Warn("cleanup object after failed save", zap.String("key", u.ObjectKey), zap.Error(derr))
		}
		return nil, fmt.Errorf("save upload: %w", err)
	}

	s.logger().Info("upload stored",
		zap.String("upload_id", string(u.ID)),
		zap.String("file_type", string(u.FileType)),
		zap.Int64("size", u.SizeBytes),
	)
	return u, nil
}

// List returns the caller's uploads newest first, each with its latest analysis
func (s *Service) List(ctx context.Context, userID string) ([]UploadView, error) {
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}

	out := make([]UploadView, 0, len(items))
	for _, u := range items {
		v, err := s.view(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID string, id domainuploads.UploadID) (UploadView, error) {
	u, err := s.Owned(ctx, userID, id)
	if err != nil {
		return UploadView{}, err
	}
	return s.view(ctx, u)
}

// Owned loads an upload and checks that userID owns it
func (s *Service) Owned(ctx context.Context, userID string, id domainuploads.UploadID) (*domainuploads.Upload, error) {
	u, err := s.Repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewClientError(domain.ErrNotFound, "Upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}
	if u.UserID != userID {
		return nil, domain.NewClientError(domain.ErrForbidden, "Not authorized to access this upload")
	}
	return u, nil
}

// Delete removes the analyses and the upload record, then the stored object.
// A failed object delete only leaves an orphan in the bucket and is logged.
func (s *Service) Delete(ctx context.Context, userID string, id domainuploads.UploadID) error {
	u, err := s.Owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.Analyses.DeleteByUpload(ctx, string(u.ID)); err != nil {
		return fmt.Errorf("delete analyses: %w", err)
	}
	if err := s.Repo.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if err := s.Store.Delete(ctx, u.ObjectKey); err != nil {
		s.logger().Warn("remove object of deleted upload", zap.String("key", u.ObjectKey), zap.Error(err))
	}

	s.logger().Info("upload deleted", zap.String("upload_id", string(u.ID)))
	return nil
}

func (s *Service) view(ctx context.Context, u *domainuploads.Upload) (UploadView, error) {
	a, err := s.Analyses.LatestByUpload(ctx, string(u.ID))
	if err != nil {
		return UploadView{}, fmt.Errorf("latest analysis for %s: %w", u.ID, err)
	}
	v := UploadView{Upload: u}
	if a != nil {
		v.Analysis = &AnalysisSummary{
			ID:               a.ID,
			LicensingSummary: a.LicensingSummary,
			RiskScore:        a.RiskScore,
			CreatedAt:        a.CreatedAt,
		}
	}
	return v, nil
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
