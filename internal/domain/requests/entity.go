package requests

import (
	"time"

	"github.com/bryanwahyu/rightsdesk/internal/domain/uploads"
)

// RequestID identifier type
type RequestID string

// Request is a legal question asked by a user together with the answer given.
type Request struct {
	ID        RequestID    `json:"id"`
	UserID    string       `json:"userId"`
	UploadID  string       `json:"uploadId,omitempty"`
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	CreatedAt time.Time    `json:"createdAt"`
	Upload    *uploads.Ref `json:"upload"`
}
