package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/chatdesk/models"
	"github.com/cppla/chatdesk/store"
	"github.com/cppla/chatdesk/utils"
)

// MaxUploadSize is the largest accepted upload, 10 MiB.
const MaxUploadSize = 10 * 1024 * 1024

// AllowedContentTypes lists the declared content types accepted for upload.
var AllowedContentTypes = []string{
	"text/plain", "text/csv", "application/pdf",
	"application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"application/json", "text/markdown",
}

// UploadRequest carries one incoming file. Size and ContentType are the
// client's declarations; Body may be nil when no file part was sent.
type UploadRequest struct {
	SessionID   string
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// FileService validates uploads, stores blobs and keeps their metadata rows.
type FileService struct {
	db       *gorm.DB
	blobs    store.BlobStore
	sessions store.SessionStore
	log      *zap.Logger
}

// NewFileService wires the service.
func NewFileService(db *gorm.DB, blobs store.BlobStore, sessions store.SessionStore, log *zap.Logger) *FileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileService{db: db, blobs: blobs, sessions: sessions, log: log}
}

// Upload validates req, stores it and records it in the session transcript.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (models.FileInfo, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return models.FileInfo{}, inputError("Session ID is required")
	}
	if utf8.RuneCountInString(req.SessionID) > models.MaxSessionIDLength {
		return models.FileInfo{}, inputError(fmt.Sprintf("Session ID must be at most %d characters", models.MaxSessionIDLength))
	}
	if req.Body == nil {
		return models.FileInfo{}, inputError("No file provided")
	}
	if req.Size > MaxUploadSize {
		return models.FileInfo{}, validationError("File size exceeds 10MB limit")
	}
	contentType := normalizeContentType(req.ContentType)
	if !allowedContentType(contentType) {
		return models.FileInfo{}, validationError(fmt.Sprintf("File type %s not allowed. Allowed types: %s",
			req.ContentType, strings.Join(AllowedContentTypes, ", ")))
	}

	name := utils.DisplayName(req.Filename)
	key := store.BlobKey(req.SessionID, name)
	written, err := s.blobs.Put(ctx, key, &io.LimitedReader{R: req.Body, N: MaxUploadSize + 1}, req.Size, contentType)
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("store blob: %w", err)
	}
	if written > MaxUploadSize {
		s.removeBlob(key)
		return models.FileInfo{}, validationError("File size exceeds 10MB limit")
	}

	rec := models.UploadedFile{
		SessionID:        req.SessionID,
		OriginalFilename: name,
		StorageKey:       key,
		FileSize:         written,
		ContentType:      contentType,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.removeBlob(key)
		return models.FileInfo{}, fmt.Errorf("save file record: %w", err)
	}

	info, err := s.describe(ctx, rec)
	if err != nil {
		return models.FileInfo{}, err
	}

	turnInfo := info
	turnInfo.UploadedAt = ""
	turn := models.Turn{
		Role:     models.RoleUser,
		Content:  fmt.Sprintf("📎 Uploaded file: %s (%s)", name, info.Size),
		FileInfo: &turnInfo,
	}
	if _, err := s.sessions.Append(ctx, req.SessionID, turn); err != nil {
		// the file is stored and listed; only the transcript entry is missing
		s.log.Warn("append upload turn failed", zap.String("file_id", rec.ID), zap.Error(err))
	}

	s.log.Info("file uploaded",
		zap.String("file_id", rec.ID),
		zap.Int64("size", written),
		zap.String("type", contentType))
	return info, nil
}

// List returns the files of sessionID, newest first.
func (s *FileService) List(ctx context.Context, sessionID string) ([]models.FileInfo, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, inputError("Session ID is required")
	}
	var recs []models.UploadedFile
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out := make([]models.FileInfo, 0, len(recs))
	for _, rec := range recs {
		info, err := s.describe(ctx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Delete removes a file owned by sessionID and returns its display name.
func (s *FileService) Delete(ctx context.Context, fileID, sessionID string) (string, error) {
	if strings.TrimSpace(fileID) == "" {
		return "", inputError("File ID is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", inputError("Session ID is required")
	}

	var rec models.UploadedFile
	err := s.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", fileID, sessionID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFoundError("File not found")
	}
	if err != nil {
		return "", fmt.Errorf("load file record: %w", err)
	}

	if err := s.remove(ctx, rec); err != nil {
		return "", err
	}
	return rec.OriginalFilename, nil
}

// PurgeOlderThan deletes files uploaded before cutoff, at most limit per call.
func (s *FileService) PurgeOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	var recs []models.UploadedFile
	if err := s.db.WithContext(ctx).
		Where("created_at <= ?", cutoff).
		Limit(limit).
		Find(&recs).Error; err != nil {
		return 0, fmt.Errorf("query expired files: %w", err)
	}
	removed := 0
	for _, rec := range recs {
		if err := s.remove(ctx, rec); err != nil {
			s.log.Warn("purge file failed", zap.String("file_id", rec.ID), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// remove deletes the blob first, then the row.
func (s *FileService) remove(ctx context.Context, rec models.UploadedFile) error {
	if err := s.blobs.Delete(ctx, rec.StorageKey); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&models.UploadedFile{}, "id = ?", rec.ID).Error; err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

func (s *FileService) removeBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error("orphaned blob left behind", zap.String("key", key), zap.Error(err))
	}
}

func (s *FileService) describe(ctx context.Context, rec models.UploadedFile) (models.FileInfo, error) {
	url, err := s.blobs.URL(ctx, rec.StorageKey)
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("file url: %w", err)
	}
	return models.FileInfo{
		ID:         rec.ID,
		Filename:   rec.OriginalFilename,
		Size:       HumanSize(rec.FileSize),
		Type:       rec.ContentType,
		URL:        url,
		UploadedAt: rec.CreatedAt.Format(time.RFC3339),
	}, nil
}

// normalizeContentType drops parameters such as "; charset=utf-8".
func normalizeContentType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func allowedContentType(ct string) bool {
	for _, t := range AllowedContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}
