// Package chunker turns normalized document text into size-bounded chunks
// ready for embedding.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/segmenter"
)

type Strategy string

const (
	StrategyGeneral   Strategy = "general"
	StrategySectioned Strategy = "sectioned"
	StrategyTable     Strategy = "table"
	StrategyFallback  Strategy = "fallback"
)

// Extras keys set on chunks by the strategies.
const (
	ExtraContinued = "continued"
	ExtraSection   = "section"
	ExtraRowStart  = "row_start"
	ExtraRowEnd    = "row_end"
)

type Chunk struct {
	Index    int
	Text     string
	Strategy Strategy
	Extras   map[string]interface{}
}

type Config struct {
	MaxChunkSize        int
	MinChunkSize        int
	ChunkOverlap        int
	SimilarityThreshold float64
}

func DefaultConfig() Config {
	return Config{
		MaxChunkSize:        1000,
		MinChunkSize:        200,
		ChunkOverlap:        200,
		SimilarityThreshold: segmenter.DefaultThreshold,
	}
}

func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return errors.New("chunker: max chunk size must be positive")
	}
	if c.MinChunkSize < 0 || c.MinChunkSize > c.MaxChunkSize {
		return fmt.Errorf("chunker: min chunk size %d must be within [0, %d]", c.MinChunkSize, c.MaxChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("chunker: overlap %d must be smaller than max chunk size %d", c.ChunkOverlap, c.MaxChunkSize)
	}
	return nil
}

// Segmenter is the topic segmentation the general strategy relies on.
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]segmenter.Segment, error)
}

type Option func(*Assembler)

func WithLogger(l logger.ILogger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

type Assembler struct {
	cfg       Config
	segmenter Segmenter
	logger    logger.ILogger
}

func New(cfg Config, seg Segmenter, opts ...Option) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Assembler{cfg: cfg, segmenter: seg, logger: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Assembler) Config() Config {
	return a.cfg
}

// piece is a chunk before its index is assigned.
type piece struct {
	text     string
	strategy Strategy
	extras   map[string]interface{}
}

// Assemble picks a strategy for text and returns chunks indexed in emission
// order. Segmentation problems never surface: the window fallback takes over.
// The only error is context cancellation.
func (a *Assembler) Assemble(ctx context.Context, text, fileType string) ([]Chunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kind := Classify(text, fileType)

	var (
		pieces []piece
		err    error
	)
	switch kind {
	case KindTabular:
		pieces = a.tableChunks(text)
	case KindSectioned:
		pieces, err = a.sectionedChunks(ctx, text)
	default:
		pieces, err = a.generalChunks(ctx, text)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || len(pieces) == 0 {
		details := map[string]interface{}{"kind": string(kind), "length": utf8.RuneCountInString(text)}
		if err != nil {
			details["error"] = err.Error()
		}
		a.logger.Warn("Chunker", "Falling back to window chunking", details)
		pieces = a.fallbackChunks(text)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p.text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Text:     p.text,
			Strategy: p.strategy,
			Extras:   p.extras,
		})
	}
	return chunks, nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
