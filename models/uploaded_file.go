package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxSessionIDLength is the widest session id the files table can hold.
const MaxSessionIDLength = 100

// UploadedFile records a blob attached to a chat session. Rows are only ever
// read or deleted together with the owning session id.
type UploadedFile struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID        string    `gorm:"size:100;index;not null" json:"session_id"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	StorageKey       string    `gorm:"size:1024;not null" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	ContentType      string    `gorm:"size:100;not null" json:"content_type"`
	CreatedAt        time.Time `gorm:"index" json:"uploaded_at"`
}

// BeforeCreate assigns a random id when the caller did not set one.
func (f *UploadedFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	return nil
}
