package store

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cppla/chatdesk/models"
)

// BlobStore persists uploaded bytes. Keys are slash separated and generated
// by BlobKey; Delete of a missing key is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// BlobKey returns a collision-resistant key partitioned by session id. The
// session id and extension come from the client, so both are reduced to a
// safe character set.
func BlobKey(sessionID, filename string) string {
	dir := unsafeSegment.ReplaceAllString(sessionID, "_")
	if len(dir) > models.MaxSessionIDLength {
		dir = dir[:models.MaxSessionIDLength]
	}
	if dir == "" {
		dir = "_"
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" {
		ext = "." + unsafeSegment.ReplaceAllString(ext[1:], "")
		if ext == "." || len(ext) > 16 {
			ext = ""
		}
	}
	return path.Join("uploads", dir, uuid.NewString()+ext)
}
