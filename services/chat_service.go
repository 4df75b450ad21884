package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/chatdesk/models"
	"github.com/cppla/chatdesk/providers"
	"github.com/cppla/chatdesk/store"
)

// ChatResult is the outcome of one chat exchange.
type ChatResult struct {
	Response     string `json:"response"`
	Status       string `json:"status"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// ChatService appends user turns, asks the completion provider for a reply and
// records it. Provider trouble never fails a request; a canned reply is used.
type ChatService struct {
	sessions store.SessionStore
	provider providers.CompletionProvider
	timeout  time.Duration
	log      *zap.Logger
}

// NewChatService wires the service. provider may be nil, meaning unconfigured.
func NewChatService(sessions store.SessionStore, provider providers.CompletionProvider, timeout time.Duration, log *zap.Logger) *ChatService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{sessions: sessions, provider: provider, timeout: timeout, log: log}
}

// Chat runs one exchange for sessionID.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, inputError("Message is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return ChatResult{}, inputError("Session ID is required")
	}

	count, err := s.sessions.Append(ctx, sessionID, models.Turn{Role: models.RoleUser, Content: message})
	if err != nil {
		return ChatResult{}, fmt.Errorf("append user turn: %w", err)
	}

	reply, perr := s.complete(ctx, sessionID)
	if perr != nil {
		s.log.Warn("completion failed, using fallback",
			zap.String("provider", s.provider.Name()),
			zap.Error(perr))
		reply = failureReply(message, count, perr)
	} else if reply == "" {
		reply = fallbackReply(message, count)
	}

	count, err = s.sessions.Append(ctx, sessionID, models.Turn{Role: models.RoleAssistant, Content: reply})
	if err != nil {
		return ChatResult{}, fmt.Errorf("append assistant turn: %w", err)
	}

	return ChatResult{
		Response:     reply,
		Status:       "success",
		SessionID:    sessionID,
		MessageCount: count,
	}, nil
}

// complete asks the provider for the next reply using the full transcript.
// It returns "" with a nil error when no provider is configured.
func (s *ChatService) complete(ctx context.Context, sessionID string) (string, *Error) {
	if s.provider == nil {
		return "", nil
	}
	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return "", providerError(s.provider.Name(), err)
	}
	msgs := make([]providers.Message, 0, len(history))
	for _, t := range history {
		msgs = append(msgs, providers.Message{Role: t.Role, Content: t.Content})
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.provider.Complete(cctx, msgs)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", s.timeout, err)
		}
		return "", providerError(s.provider.Name(), err)
	}
	return reply, nil
}

// History returns the transcript of sessionID.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, inputError("Session ID is required")
	}
	return s.sessions.History(ctx, sessionID)
}

// Clear drops the transcript of sessionID.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return inputError("Session ID is required")
	}
	return s.sessions.Clear(ctx, sessionID)
}

// Sessions lists every known session for diagnostics.
func (s *ChatService) Sessions(ctx context.Context) ([]models.SessionSummary, error) {
	return s.sessions.List(ctx)
}

const setupHint = `To enable real responses:
1. Get an API key from your completion provider (OpenAI or Anthropic)
2. Set OPENAI_API_KEY, or set PROVIDER=anthropic and ANTHROPIC_API_KEY
3. Restart the server`

func fallbackReply(message string, count int) string {
	return fmt.Sprintf(`This is a mock response to: "%s"

%s

Chat history for this session: %d messages
For now, I'm just echoing your message back with some helpful information!`, message, setupHint, count)
}

func failureReply(message string, count int, err *Error) string {
	return fmt.Sprintf(`The completion provider could not answer (%s), so this is a mock response to: "%s"

%s

Chat history for this session: %d messages`, err.Msg, message, setupHint, count)
}
