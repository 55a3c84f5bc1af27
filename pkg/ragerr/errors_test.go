package ragerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("indexing chunk 3: %w", Embedding("ollama.generate", cause))

	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrIndex)
	assert.Equal(t, KindEmbedding, KindOf(err))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported", UnsupportedFormat("normalize", "docx"), `normalize: unsupported_format: file type "docx" is not supported`},
		{"extraction", Extraction("normalize.pdf", "open reader", errors.New("bad xref")), "normalize.pdf: extraction: open reader: bad xref"},
		{"index", Index("", errors.New("timeout")), "index: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
