package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-docqa-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Model:   got.Model,
			Message: llm.Message{Role: llm.RoleAssistant, Content: " Revenue grew 12%.\n"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3")
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "Answer from context."},
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "How did revenue change?"},
	}, llm.WithMaxTokens(64), llm.WithModel("qwen2"), llm.WithContextWindow(4096))

	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", out)
	assert.Equal(t, "qwen2", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "5m", got.KeepAlive)
	assert.Equal(t, 64, got.Options.NumPredict)
	assert.Equal(t, 4096, got.Options.NumCtx)
	assert.Equal(t, 0.2, got.Options.Temperature)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
}

func TestChat_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "model not pulled",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
			check: func(t *testing.T, err error) {
				var statusErr *llm.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
				assert.False(t, statusErr.Temporary())
				assert.Contains(t, err.Error(), "404")
			},
		},
		{
			name: "server overloaded",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "busy", http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var statusErr *llm.StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.True(t, statusErr.Temporary())
			},
		},
		{
			name: "empty reply",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(chatResponse{Message: llm.Message{Content: "  "}, Done: true})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, llm.ErrEmptyReply)
			},
		},
		{
			name: "error in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(chatResponse{Error: "out of memory"})
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "out of memory")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "missing").Generate(context.Background(), "hi")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
