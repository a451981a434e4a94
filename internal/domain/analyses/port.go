package analyses

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	ListByUser(ctx context.Context, userID string) ([]*Analysis, error)
	LatestByUpload(ctx context.Context, uploadID string) (*Analysis, error)
	Delete(ctx context.Context, id AnalysisID) error
	DeleteByUpload(ctx context.Context, uploadID string) error
}
