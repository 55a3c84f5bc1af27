// Package memory is an in-process vector store using brute-force cosine
// distance. It backs the CLI and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/vectorindex"
)

type entry struct {
	rec vectorindex.Record
	seq int
}

type collection struct {
	dimension int
	entries   map[string]entry
	nextSeq   int
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) Add(ctx context.Context, name string, rec vectorindex.Record) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("memory: empty embedding for %s", rec.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{dimension: len(rec.Embedding), entries: make(map[string]entry)}
		s.collections[name] = c
	}
	if len(rec.Embedding) != c.dimension {
		return fmt.Errorf("memory: collection %s expects %d dimensions, got %d", name, c.dimension, len(rec.Embedding))
	}

	meta := make(map[string]interface{}, len(rec.Metadata))
	for k, v := range rec.Metadata {
		meta[k] = v
	}
	rec.Metadata = meta
	c.entries[rec.ID] = entry{rec: rec, seq: c.nextSeq}
	c.nextSeq++
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, k int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, vectorindex.ErrCollectionNotFound
	}

	type scored struct {
		match vectorindex.Match
		seq   int
	}
	hits := make([]scored, 0, len(c.entries))
	for _, e := range c.entries {
		if len(filter) > 0 && !filter.Matches(e.rec.Metadata) {
			continue
		}
		hits = append(hits, scored{
			match: vectorindex.Match{
				ID:       e.rec.ID,
				Text:     e.rec.Text,
				Metadata: e.rec.Metadata,
				Distance: embedding.CosineDistance(vector, e.rec.Embedding),
			},
			seq: e.seq,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].match.Distance != hits[j].match.Distance {
			return hits[i].match.Distance < hits[j].match.Distance
		}
		return hits[i].seq < hits[j].seq
	})
	if k < len(hits) {
		hits = hits[:k]
	}

	out := make([]vectorindex.Match, len(hits))
	for i, h := range hits {
		out[i] = h.match
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return vectorindex.ErrCollectionNotFound
	}
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, vectorindex.ErrCollectionNotFound
	}
	return len(c.entries), nil
}

// Collections lists the collection names currently held.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
