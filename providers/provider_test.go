package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"

	"github.com/cppla/chatdesk/models"
)

var conversation = []Message{
	{Role: models.RoleUser, Content: "Hello"},
	{Role: models.RoleAssistant, Content: "Hi there"},
	{Role: models.RoleUser, Content: "How are you?"},
}

type capturedRequest struct {
	Path    string
	Auth    string
	APIKey  string
	Payload map[string]any
}

func fakeAPI(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Path = r.URL.Path
		got.Auth = r.Header.Get("Authorization")
		got.APIKey = r.Header.Get("X-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&got.Payload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func payloadRoles(t *testing.T, payload map[string]any) []string {
	t.Helper()
	msgs, ok := payload["messages"].([]any)
	require.True(t, ok, "messages missing from payload")
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	return roles
}

func TestOpenAIProviderComplete(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4.1-nano",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "Doing well."}}]
	}`)

	p := NewOpenAIProvider("sk-test", "", srv.URL+"/", openaioption.WithMaxRetries(0))
	reply, err := p.Complete(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Doing well.", reply)
	assert.Equal(t, "openai", p.Name())

	assert.Equal(t, "/chat/completions", got.Path)
	assert.Equal(t, "Bearer sk-test", got.Auth)
	assert.Equal(t, "gpt-4.1-nano", got.Payload["model"])
	assert.Equal(t, []string{"user", "assistant", "user"}, payloadRoles(t, got.Payload))
}

func TestOpenAIProviderError(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusUnauthorized, `{"error": {"message": "bad key", "type": "invalid_request_error"}}`)

	p := NewOpenAIProvider("sk-bad", "gpt-4o-mini", srv.URL+"/", openaioption.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), conversation)
	require.Error(t, err)
}

func TestOpenAIProviderEmptyChoices(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`)

	p := NewOpenAIProvider("sk-test", "m", srv.URL+"/", openaioption.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestAnthropicProviderComplete(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "Doing "}, {"type": "text", "text": "well."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 3}
	}`)

	p := NewAnthropicProvider("ak-test", "", srv.URL+"/", anthropicoption.WithMaxRetries(0))
	reply, err := p.Complete(context.Background(), conversation)
	require.NoError(t, err)
	assert.Equal(t, "Doing well.", reply)
	assert.Equal(t, "anthropic", p.Name())

	assert.Equal(t, "/v1/messages", got.Path)
	assert.Equal(t, "ak-test", got.APIKey)
	assert.Equal(t, "claude-3-5-haiku-latest", got.Payload["model"])
	assert.EqualValues(t, anthropicMaxTokens, got.Payload["max_tokens"])
	assert.Equal(t, []string{"user", "assistant", "user"}, payloadRoles(t, got.Payload))
}

func TestAnthropicProviderEmptyContent(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{"id": "msg_2", "type": "message", "role": "assistant",
		"model": "m", "content": [], "stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 0}}`)

	p := NewAnthropicProvider("ak-test", "m", srv.URL+"/", anthropicoption.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), conversation)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestNew(t *testing.T) {
	p, err := New(Config{Name: "openai"})
	require.NoError(t, err)
	assert.Nil(t, p, "no key means no provider")

	p, err = New(Config{Name: "openai", APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = New(Config{Name: "anthropic", APIKey: "ak"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = New(Config{Name: "llama", APIKey: "k"})
	assert.Error(t, err)
}
