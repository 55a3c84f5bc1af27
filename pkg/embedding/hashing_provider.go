package embedding

import (
	"context"
	"hash/fnv"

	"ai-docqa-be/pkg/textutil"
)

// HashingProvider is an offline embedder: token counts are folded into a
// fixed number of buckets with the hashing trick and L2-normalized. It needs
// no model or network, so it backs the CLI and local development.
type HashingProvider struct {
	dimensions int
}

func NewHashingProvider(dimensions int) *HashingProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashingProvider{dimensions: dimensions}
}

func (p *HashingProvider) Dimensions() int {
	return p.dimensions
}

func (p *HashingProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, p.dimensions)
	for _, tok := range textutil.Tokenize(text) {
		if textutil.IsStopword(tok) {
			continue
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(p.dimensions))
		// The sign bit keeps colliding tokens from always reinforcing each other.
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return NormalizeVector(vec), nil
}
