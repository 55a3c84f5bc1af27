package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-docqa-be/pkg/llm"
)

// OllamaProvider generates answers with a local Ollama server through its
// non-streaming /api/chat route.
type OllamaProvider struct {
	BaseURL   string
	ModelName string
	KeepAlive string // how long Ollama keeps the model loaded, e.g. "5m"
	Client    *http.Client
}

var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		KeepAlive: "5m",
		Client:    llm.NewHTTPClient(120 * time.Second),
	}
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []llm.Message  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   *modelSettings `json:"options,omitempty"`
}

type modelSettings struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type chatResponse struct {
	Model      string      `json:"model"`
	Message    llm.Message `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
	Error      string      `json:"error"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Temperature: 0.2}
	for _, opt := range opts {
		opt(options)
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	messages := make([]llm.Message, len(history))
	for i, msg := range history {
		if msg.Role == "model" {
			msg.Role = llm.RoleAssistant
		}
		messages[i] = msg
	}

	payload, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  messages,
		KeepAlive: o.KeepAlive,
		Options: &modelSettings{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
			NumCtx:      options.ContextWindow,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &llm.StatusError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("model %q is not pulled: %w", model, statusErr)
		}
		return "", statusErr
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if !out.Done {
		return "", fmt.Errorf("ollama returned an incomplete response")
	}

	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		return "", llm.ErrEmptyReply
	}
	return text, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
