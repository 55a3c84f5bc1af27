package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoizes another provider. Segmentation embeds every
// sentence and reprocessing repeats that work, so hits are common.
type CachedProvider struct {
	next  EmbeddingProvider
	store *cache.Cache
}

func NewCachedProvider(next EmbeddingProvider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		store: cache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Dimensions() int {
	return p.next.Dimensions()
}

func (p *CachedProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := cacheKey(text, taskType)
	if v, found := p.store.Get(key); found {
		return v.([]float32), nil
	}

	vec, err := p.next.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	p.store.SetDefault(key, vec)
	return vec, nil
}

func cacheKey(text, taskType string) string {
	sum := sha256.Sum256([]byte(taskType + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
