package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/ragerr"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.jina.ai/v1/embeddings"

type JinaProvider struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey, model string, dimensions int) *JinaProvider {
	if model == "" {
		model = "jina-embeddings-v3"
	}
	return &JinaProvider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithBaseURL points the provider at a different endpoint (tests, proxies).
func (p *JinaProvider) WithBaseURL(url string) *JinaProvider {
	p.baseURL = url
	return p
}

func (p *JinaProvider) Dimensions() int {
	return p.dimensions
}

func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model:      p.model,
		Input:      []string{text},
		Task:       jinaTask(taskType),
		Dimensions: p.dimensions,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	var jinaResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("failed to decode response: %w", err))
	}

	if jinaResp.Error != nil {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("jina api returned error: %s", jinaResp.Error.Message))
	}

	if len(jinaResp.Data) == 0 || len(jinaResp.Data[0].Embedding) == 0 {
		return nil, ragerr.Embedding("jina.generate", fmt.Errorf("empty embeddings from jina api"))
	}

	return embedding.NormalizeVector(jinaResp.Data[0].Embedding), nil
}

func jinaTask(taskType string) string {
	switch taskType {
	case embedding.TaskRetrievalDocument:
		return "retrieval.passage"
	case embedding.TaskRetrievalQuery:
		return "retrieval.query"
	case embedding.TaskSemanticSimilarity:
		return "text-matching"
	}
	return ""
}
