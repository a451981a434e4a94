package uploads

import (
	"strings"
	"time"
)

// UploadID identifier type
type UploadID string

// FileType enum
type FileType string

const (
	FileTypeImage   FileType = "IMAGE"
	FileTypeArticle FileType = "ARTICLE"
	FileTypeVideo   FileType = "VIDEO"
)

// ParseFileType accepts the three known kinds, case-insensitively.
func ParseFileType(s string) (FileType, bool) {
	switch ft := FileType(strings.ToUpper(strings.TrimSpace(s))); ft {
	case FileTypeImage, FileTypeArticle, FileTypeVideo:
		return ft, true
	}
	return "", false
}

// Upload is a stored user file awaiting or having licensing analysis.
type Upload struct {
	ID          UploadID  `json:"id"`
	UserID      string    `json:"userId"`
	FileType    FileType  `json:"fileType"`
	FileName    string    `json:"fileName"`
	ObjectKey   string    `json:"-"`
	FileURL     string    `json:"fileUrl"`
	ContentType string    `json:"contentType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Ref is the compact form embedded in other records.
type Ref struct {
	ID       UploadID `json:"id"`
	FileName string   `json:"fileName"`
	FileType FileType `json:"fileType"`
}
