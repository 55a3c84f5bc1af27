package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-docqa-be/pkg/ragerr"
)

// OllamaProvider implements EmbeddingProvider for local Ollama models (e.g., nomic-embed-text)
type OllamaProvider struct {
	BaseURL    string
	Model      string
	dimensions int
	client     *http.Client
}

func NewOllamaProvider(baseURL string, model string, dimensions int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		dimensions: dimensions,
		client:     newHTTPClient(60 * time.Second),
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	reqBody := ollamaEmbeddingRequest{
		Model:  p.Model,
		Prompt: p.prefix(taskType) + text,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, ragerr.Embedding("ollama.generate", err)
	}

	endpoint := fmt.Sprintf("%s/api/embeddings", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, ragerr.Embedding("ollama.generate", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ragerr.Embedding("ollama.generate", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ragerr.Embedding("ollama.generate", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ragerr.Embedding("ollama.generate", fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, ragerr.Embedding("ollama.generate", fmt.Errorf("decode response: %w", err))
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, ragerr.Embedding("ollama.generate", fmt.Errorf("empty embedding"))
	}
	if p.dimensions > 0 && len(ollamaResp.Embedding) != p.dimensions {
		return nil, ragerr.Embedding("ollama.generate", fmt.Errorf("expected %d dimensions, got %d", p.dimensions, len(ollamaResp.Embedding)))
	}

	values := make([]float32, len(ollamaResp.Embedding))
	for i, v := range ollamaResp.Embedding {
		values[i] = float32(v)
	}

	// Cosine distance in pgvector and qdrant assumes unit vectors.
	return NormalizeVector(values), nil
}

// nomic models are trained with task prefixes.
func (p *OllamaProvider) prefix(taskType string) string {
	if !strings.Contains(p.Model, "nomic") {
		return ""
	}
	switch taskType {
	case TaskRetrievalDocument:
		return "search_document: "
	case TaskRetrievalQuery:
		return "search_query: "
	case TaskSemanticSimilarity:
		return "clustering: "
	}
	return ""
}
