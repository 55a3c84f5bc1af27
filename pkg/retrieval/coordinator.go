// Package retrieval searches one or many document collections and merges the
// hits into a single ranked list.
package retrieval

import (
	"context"
	"sort"
	"sync"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/vectorindex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxConcurrent = 8

var tracer = otel.Tracer("ai-docqa-be/pkg/retrieval")

// Searcher is the part of vectorindex.Index the coordinator needs.
type Searcher interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	QueryVector(ctx context.Context, collection string, vec []float32, k int, filter vectorindex.Filter) ([]vectorindex.SearchResult, error)
}

type Option func(*Coordinator)

// WithMinRelevance drops merged results whose relevance is below min.
func WithMinRelevance(min float64) Option {
	return func(c *Coordinator) { c.minRelevance = min }
}

// WithMaxConcurrent bounds the number of collections queried at once.
func WithMaxConcurrent(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

func WithLogger(log logger.ILogger) Option {
	return func(c *Coordinator) { c.logger = log }
}

type Coordinator struct {
	index         Searcher
	logger        logger.ILogger
	minRelevance  float64
	maxConcurrent int
}

func NewCoordinator(index Searcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		index:         index,
		logger:        logger.NewNopLogger(),
		maxConcurrent: defaultMaxConcurrent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchOne queries a single collection. Failures are logged and yield an
// empty result.
func (c *Coordinator) SearchOne(ctx context.Context, collection, query string, k int, filter vectorindex.Filter) []vectorindex.SearchResult {
	ctx, span := tracer.Start(ctx, "retrieval.SearchOne")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("k", k))

	if k <= 0 {
		return []vectorindex.SearchResult{}
	}
	vec, err := c.index.EmbedQuery(ctx, query)
	if err != nil {
		c.fail(span, "Query embedding failed", collection, err)
		return []vectorindex.SearchResult{}
	}
	results, err := c.index.QueryVector(ctx, collection, vec, k, filter)
	if err != nil {
		c.fail(span, "Collection search failed", collection, err)
		return []vectorindex.SearchResult{}
	}
	results = c.applyMinRelevance(results)
	span.SetAttributes(attribute.Int("results", len(results)))
	return results
}

// SearchMany fans out over collections with a per-collection budget of
// max(1, k/len(collections)), merges, sorts by ascending distance and keeps
// the best k. A failing collection contributes nothing.
func (c *Coordinator) SearchMany(ctx context.Context, collections []string, query string, k int, filter vectorindex.Filter) []vectorindex.SearchResult {
	ctx, span := tracer.Start(ctx, "retrieval.SearchMany")
	defer span.End()
	span.SetAttributes(attribute.Int("collections", len(collections)), attribute.Int("k", k))

	if len(collections) == 0 || k <= 0 {
		return []vectorindex.SearchResult{}
	}

	vec, err := c.index.EmbedQuery(ctx, query)
	if err != nil {
		c.fail(span, "Query embedding failed", "", err)
		return []vectorindex.SearchResult{}
	}

	budget := PerCollectionBudget(k, len(collections))
	perCollection := make([][]vectorindex.SearchResult, len(collections))

	sem := make(chan struct{}, c.maxConcurrent)
	var wg sync.WaitGroup
	for i, name := range collections {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results, err := c.index.QueryVector(ctx, name, vec, budget, filter)
			if err != nil {
				c.logger.Warn("Retrieval", "Collection search failed", map[string]interface{}{
					"collection": name,
					"error":      err.Error(),
				})
				return
			}
			perCollection[i] = results
		}(i, name)
	}
	wg.Wait()

	merged := Merge(perCollection, k)
	merged = c.applyMinRelevance(merged)
	span.SetAttributes(attribute.Int("results", len(merged)))
	return merged
}

func (c *Coordinator) applyMinRelevance(results []vectorindex.SearchResult) []vectorindex.SearchResult {
	if c.minRelevance <= 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Relevance >= c.minRelevance {
			kept = append(kept, r)
		}
	}
	return kept
}

func (c *Coordinator) fail(span trace.Span, msg, collection string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	c.logger.Warn("Retrieval", msg, map[string]interface{}{
		"collection": collection,
		"error":      err.Error(),
	})
}

// PerCollectionBudget is max(1, k/n) using integer division.
func PerCollectionBudget(k, n int) int {
	if n <= 0 {
		return k
	}
	if b := k / n; b > 1 {
		return b
	}
	return 1
}

// Merge concatenates per-collection results in collection order, stable-sorts
// them by ascending distance and truncates to k.
func Merge(perCollection [][]vectorindex.SearchResult, k int) []vectorindex.SearchResult {
	merged := make([]vectorindex.SearchResult, 0)
	for _, results := range perCollection {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if k >= 0 && len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
