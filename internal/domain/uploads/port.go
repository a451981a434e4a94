package uploads

import (
	"context"
	"io"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, u *Upload) error
	Get(ctx context.Context, id UploadID) (*Upload, error)
	ListByUser(ctx context.Context, userID string) ([]*Upload, error)
	Delete(ctx context.Context, id UploadID) error
}

// ObjectStore port (interface untuk penyimpanan file)
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Get returns domain.ErrNotFound (wrapped) when key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
