// Package segmenter groups sentences into topic segments by watching the
// cosine similarity of adjacent sentence embeddings.
package segmenter

import (
	"context"
	"fmt"
	"strings"

	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/ragerr"
)

const DefaultThreshold = 0.5

type Segment struct {
	Sentences []string
}

func (s Segment) Text() string {
	return strings.Join(s.Sentences, " ")
}

type Segmenter struct {
	provider  embedding.EmbeddingProvider
	threshold float64
}

func New(provider embedding.EmbeddingProvider, threshold float64) *Segmenter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Segmenter{provider: provider, threshold: threshold}
}

func (s *Segmenter) Segment(ctx context.Context, text string) ([]Segment, error) {
	return s.SegmentSentences(ctx, SplitSentences(text))
}

// SegmentSentences embeds every sentence and cuts wherever two neighbours are
// less similar than the threshold. Any failure is returned as a
// SegmentationError; callers fall back to window chunking.
func (s *Segmenter) SegmentSentences(ctx context.Context, sentences []string) ([]Segment, error) {
	switch len(sentences) {
	case 0:
		return nil, ragerr.Segmentation("segment", "no sentences", nil)
	case 1:
		return []Segment{{Sentences: sentences}}, nil
	}
	if s.provider == nil {
		return nil, ragerr.Segmentation("segment", "no embedding provider", nil)
	}

	vectors := make([][]float32, len(sentences))
	for i, sentence := range sentences {
		vec, err := s.provider.Generate(ctx, sentence, embedding.TaskSemanticSimilarity)
		if err != nil {
			if ragerr.KindOf(err) != ragerr.KindEmbedding {
				err = ragerr.Embedding("segment", err)
			}
			return nil, ragerr.Segmentation("segment", fmt.Sprintf("embed sentence %d", i), err)
		}
		vectors[i] = vec
	}

	similarities := make([]float64, len(vectors)-1)
	for i := 0; i+1 < len(vectors); i++ {
		similarities[i] = embedding.CosineSimilarity(vectors[i], vectors[i+1])
	}

	bounds := Boundaries(similarities, s.threshold)
	segments := make([]Segment, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		segments = append(segments, Segment{Sentences: sentences[bounds[i]:bounds[i+1]]})
	}
	return segments, nil
}

// Boundaries converts n-1 adjacent similarities into cut points over n
// sentences. The result always starts with 0 and ends with n.
func Boundaries(similarities []float64, threshold float64) []int {
	bounds := []int{0}
	for i, sim := range similarities {
		if sim < threshold {
			bounds = append(bounds, i+1)
		}
	}
	return append(bounds, len(similarities)+1)
}
