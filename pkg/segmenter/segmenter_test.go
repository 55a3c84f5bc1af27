package segmenter

import (
	"context"
	"testing"

	"ai-docqa-be/pkg/embedding/embeddingtest"
	"ai-docqa-be/pkg/ragerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "basic terminators",
			in:   "First one. Second one! Third one? Fourth",
			want: []string{"First one.", "Second one!", "Third one?", "Fourth"},
		},
		{
			name: "decimals and abbreviations",
			in:   "Revenue was 3.5 million, e.g. from Dr. Smith's unit. Costs fell.",
			want: []string{"Revenue was 3.5 million, e.g. from Dr. Smith's unit.", "Costs fell."},
		},
		{
			name: "initials",
			in:   "Written by J. R. Tolkien in 1937. It sold well.",
			want: []string{"Written by J. R. Tolkien in 1937.", "It sold well."},
		},
		{
			name: "closing quotes and runs",
			in:   `He said "stop!" Then left?! Fine.`,
			want: []string{`He said "stop!"`, "Then left?!", "Fine."},
		},
		{
			name: "blank line ends a sentence",
			in:   "Heading without period\n\nBody text here. More\nbody text.",
			want: []string{"Heading without period", "Body text here.", "More\nbody text."},
		},
		{
			name: "whitespace only",
			in:   "  \n\n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name string
		sims []float64
		want []int
	}{
		{"no pairs", nil, []int{0, 1}},
		{"all similar", []float64{0.9, 0.8}, []int{0, 3}},
		{"one drop", []float64{0.9, 0.1, 0.7}, []int{0, 2, 4}},
		{"threshold is exclusive", []float64{0.5}, []int{0, 2}},
		{"every pair drops", []float64{0.1, 0.2}, []int{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Boundaries(tt.sims, 0.5))
		})
	}
}

func TestSegment_TopicShift(t *testing.T) {
	provider := embeddingtest.NewTopicProvider("cat", "market")
	seg := New(provider, 0.5)

	text := "The cat sleeps all day. A cat purrs when happy. The market fell sharply. Analysts expect the market to recover."
	segments, err := seg.Segment(context.Background(), text)

	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, []string{"The cat sleeps all day.", "A cat purrs when happy."}, segments[0].Sentences)
	assert.Equal(t, "The market fell sharply. Analysts expect the market to recover.", segments[1].Text())
}

func TestSegment_SingleSentenceSkipsEmbedding(t *testing.T) {
	provider := embeddingtest.NewTopicProvider("x")
	seg := New(provider, 0.5)

	segments, err := seg.Segment(context.Background(), "Only one sentence here.")

	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Only one sentence here.", segments[0].Text())
	assert.Equal(t, 0, provider.Calls())
}

func TestSegment_Failures(t *testing.T) {
	failing := embeddingtest.NewTopicProvider("a")
	failing.FailWhen = func(call int, text string) bool { return call == 2 }

	t.Run("embedding error", func(t *testing.T) {
		_, err := New(failing, 0.5).Segment(context.Background(), "One. Two. Three.")
		assert.ErrorIs(t, err, ragerr.ErrSegmentation)
		assert.ErrorIs(t, err, ragerr.ErrEmbedding)
		assert.ErrorIs(t, err, embeddingtest.ErrScripted)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := New(failing, 0.5).Segment(context.Background(), "   ")
		assert.ErrorIs(t, err, ragerr.ErrSegmentation)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := New(nil, 0.5).Segment(context.Background(), "One. Two.")
		assert.ErrorIs(t, err, ragerr.ErrSegmentation)
	})
}
