package requests

import "context"

// Repository port for legal question requests
type Repository interface {
	Save(ctx context.Context, r *Request) error
	Get(ctx context.Context, id RequestID) (*Request, error)
	ListByUser(ctx context.Context, userID string) ([]*Request, error)
}
