// Package providers adapts external completion APIs to one narrow interface.
package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/cppla/chatdesk/models"
)

// Message is one role-tagged entry of the conversation sent to a provider.
type Message struct {
	Role    models.Role
	Content string
}

// CompletionProvider turns an ordered conversation into the next assistant reply.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("provider returned no text")

// Config selects and configures a provider.
type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// New returns the configured provider, or nil when no API key is set.
func New(cfg Config) (CompletionProvider, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	switch cfg.Name {
	case "openai", "":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Name)
	}
}
