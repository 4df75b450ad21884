// Package store holds the session transcript backends and blob storage used
// by the chat and upload services.
package store

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/cppla/chatdesk/models"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("session store unavailable")

// SessionStore keeps ordered chat transcripts keyed by session id.
// Appends to one session are serialised; History of an unknown session is
// empty, and Clear is idempotent.
type SessionStore interface {
	Append(ctx context.Context, sessionID string, turn models.Turn) (int, error)
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	Clear(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]models.SessionSummary, error)
}

const previewRunes = 50

// Preview renders the last-message column of the sessions listing.
func Preview(turns []models.Turn) string {
	if len(turns) == 0 {
		return "No messages"
	}
	content := turns[len(turns)-1].Content
	if utf8.RuneCountInString(content) > previewRunes {
		content = string([]rune(content)[:previewRunes])
	}
	return content + "..."
}
