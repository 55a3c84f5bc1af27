package embedding

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Task types let providers that distinguish passages from queries embed them
// differently. Providers that do not care ignore them.
const (
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// EmbeddingProvider maps text to a fixed-length vector. Identical input must
// produce identical output for the lifetime of the provider.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
	Dimensions() int
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
