package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/rightsdesk/internal/application"
	"github.com/bryanwahyu/rightsdesk/internal/application/licensing"
	"github.com/bryanwahyu/rightsdesk/internal/domain"
	domainanalyses "github.com/bryanwahyu/rightsdesk/internal/domain/analyses"
	domainrequests "github.com/bryanwahyu/rightsdesk/internal/domain/requests"
	domainuploads "github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
	"github.com/bryanwahyu/rightsdesk/internal/infra/ai/prompt"
)

const MinQuestionLength = 5

// Caller sends a prompt through the retrying LLM wrapper. It never fails; degraded
// answers are one of the licensing fallback texts.
type Caller interface {
	Call(ctx context.Context, p string) string
}

// Service implements use-cases untuk legal question
type Service struct {
	Repo     domainrequests.Repository
	Uploads  domainuploads.Repository
	Analyses domainanalyses.Repository
	LLM      Caller
	Clock    application.Clock
	Log      *zap.Logger
}

type AskCommand struct {
	UserID   string
	Question string
	UploadID string // optional
}

// AskResult reports whether the template answer replaced a degraded model answer.
type AskResult struct {
	Request  *domainrequests.Request
	Fallback bool
}

func (s *Service) Ask(ctx context.Context, cmd AskCommand) (AskResult, error) {
	question := strings.TrimSpace(cmd.Question)
	if utf8.RuneCountInString(question) < MinQuestionLength {
		return AskResult{}, domain.NewClientError(domain.ErrInvalidInput, "Question must be at least %d characters", MinQuestionLength)
	}

	var (
		ref            *domainuploads.Ref
		contentContext string
	)
	if cmd.UploadID != "" {
		u, err := s.Uploads.Get(ctx, domainuploads.UploadID(cmd.UploadID))
		if errors.Is(err, domain.ErrNotFound) {
			return AskResult{}, domain.NewClientError(domain.ErrNotFound, "Upload not found")
		}
		if err != nil {
			return AskResult{}, fmt.Errorf("get upload %s: %w", cmd.UploadID, err)
		}
		if u.UserID != cmd.UserID {
			return AskResult{}, domain.NewClientError(domain.ErrForbidden, "Not authorized to reference this upload")
		}

		latest, err := s.Analyses.LatestByUpload(ctx, string(u.ID))
		if err != nil {
			return AskResult{}, fmt.Errorf("latest analysis for %s: %w", u.ID, err)
		}
		summary := ""
		if latest != nil {
			summary = latest.LicensingSummary
		}
		contentContext = prompt.UploadContext(string(u.FileType), u.FileName, summary)
		ref = &domainuploads.Ref{ID: u.ID, FileName: u.FileName, FileType: u.FileType}
	}

	answer := s.LLM.Call(ctx, prompt.LegalQuestionPrompt(question, contentContext))
	fallback := licensing.IsDegraded(answer) || strings.TrimSpace(answer) == ""
	if fallback {
		s.logger().Warn("model answer unavailable, using template answer")
		answer = prompt.TemplateAnswer(question, contentContext)
	}

	req := &domainrequests.Request{
		ID:        domainrequests.RequestID(uuid.NewString()),
		UserID:    cmd.UserID,
		UploadID:  cmd.UploadID,
		Question:  question,
		Answer:    answer,
		CreatedAt: s.now(),
		Upload:    ref,
	}
	if err := s.Repo.Save(ctx, req); err != nil {
		return AskResult{}, fmt.Errorf("save request: %w", err)
	}

	s.logger().Info("question answered",
		zap.String("request_id", string(req.ID)),
		zap.Bool("fallback", fallback),
	)
	return AskResult{Request: req, Fallback: fallback}, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*domainrequests.Request, error) {
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if items == nil {
		items = []*domainrequests.Request{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, userID string, id domainrequests.RequestID) (*domainrequests.Request, error) {
	req, err := s.Repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewClientError(domain.ErrNotFound, "Request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	if req.UserID != userID {
		return nil, domain.NewClientError(domain.ErrForbidden, "Not authorized to access this request")
	}
	return req, nil
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
