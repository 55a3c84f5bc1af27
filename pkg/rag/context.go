// Package rag turns retrieved chunks into a bounded context window and an
// answer, either generated by an LLM or extracted from the chunks.
package rag

import (
	"fmt"
	"strings"

	"ai-docqa-be/pkg/vectorindex"
)

const (
	DefaultMaxContextChunks = 3
	DefaultMaxContextChars  = 4000

	unknownSource = "document"
)

type ContextBuilder struct {
	MaxChunks int
	MaxChars  int
}

func NewContextBuilder(maxChunks, maxChars int) ContextBuilder {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxContextChunks
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return ContextBuilder{MaxChunks: maxChunks, MaxChars: maxChars}
}

// Build renders up to MaxChunks results as "[Source i: filename]" blocks
// separated by blank lines. It stops before a block would push the context
// past MaxChars; the first block is truncated instead so the context is never
// empty. It returns the context and the results it used.
func (b ContextBuilder) Build(results []vectorindex.SearchResult) (string, []vectorindex.SearchResult) {
	var (
		sb   strings.Builder
		used []vectorindex.SearchResult
		size int
	)
	for i, r := range results {
		if i >= b.MaxChunks {
			break
		}
		block := fmt.Sprintf("[Source %d: %s]\n%s", i+1, SourceName(r), strings.TrimSpace(r.Text))
		sep := ""
		if i > 0 {
			sep = "\n\n"
		}
		n := len([]rune(sep + block))
		if size+n > b.MaxChars {
			if i > 0 {
				break
			}
			block = string([]rune(block)[:b.MaxChars])
			n = b.MaxChars
		}
		sb.WriteString(sep)
		sb.WriteString(block)
		size += n
		used = append(used, r)
	}
	return sb.String(), used
}

// SourceName is the filename a result came from.
func SourceName(r vectorindex.SearchResult) string {
	if name, ok := r.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return unknownSource
}

// Sources lists distinct filenames in rank order.
func Sources(results []vectorindex.SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		name := SourceName(r)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// BestRelevance is the highest relevance among results, 0 when empty.
func BestRelevance(results []vectorindex.SearchResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.Relevance > best {
			best = r.Relevance
		}
	}
	return best
}
