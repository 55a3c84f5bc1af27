package chunker

import (
	"context"
	"strings"

	"ai-docqa-be/pkg/ragerr"
	"ai-docqa-be/pkg/segmenter"
)

func (a *Assembler) generalChunks(ctx context.Context, text string) ([]piece, error) {
	if a.segmenter == nil {
		return nil, ragerr.Segmentation("chunker.general", "no segmenter configured", nil)
	}
	segments, err := a.segmenter.Segment(ctx, text)
	if err != nil {
		return nil, err
	}
	return a.packSegments(segments, StrategyGeneral), nil
}

// packSegments sizes topic segments into chunks. Segments under the minimum
// are held back and merged with what follows; whatever cannot merge forward
// is appended to the previous chunk when that fits and dropped otherwise.
// Oversized segments are split at sentence granularity with overlap.
func (a *Assembler) packSegments(segments []segmenter.Segment, strategy Strategy) []piece {
	var (
		out     []piece
		pending string
	)

	for _, seg := range segments {
		segText := seg.Text()
		if segText == "" {
			continue
		}

		if runeLen(segText) > a.cfg.MaxChunkSize {
			sentences := seg.Sentences
			if pending != "" {
				sentences = append([]string{pending}, sentences...)
				pending = ""
			}
			out = append(out, a.splitSentences(sentences, strategy)...)
			continue
		}

		candidate := join(pending, segText)
		if runeLen(candidate) > a.cfg.MaxChunkSize {
			out = a.mergeBackward(out, pending)
			candidate = segText
		}
		if runeLen(candidate) >= a.cfg.MinChunkSize {
			out = append(out, piece{text: candidate, strategy: strategy})
			pending = ""
		} else {
			pending = candidate
		}
	}

	if pending != "" {
		if len(out) == 0 {
			// The whole input is smaller than the minimum; it is still the
			// document's only content.
			return []piece{{text: pending, strategy: strategy}}
		}
		out = a.mergeBackward(out, pending)
	}
	return out
}

func (a *Assembler) mergeBackward(out []piece, pending string) []piece {
	if pending == "" || len(out) == 0 {
		return out
	}
	last := &out[len(out)-1]
	if merged := join(last.text, pending); runeLen(merged) <= a.cfg.MaxChunkSize {
		last.text = merged
	}
	return out
}

// splitSentences bin-packs sentences greedily. Every piece after the first
// starts with the word-aligned overlap tail of its predecessor, unless seed
// plus sentence would not fit, in which case the seed is dropped.
func (a *Assembler) splitSentences(sentences []string, strategy Strategy) []piece {
	var (
		out       []piece
		current   string
		continued bool
	)

	emit := func() {
		if strings.TrimSpace(current) == "" {
			return
		}
		p := piece{text: current, strategy: strategy}
		if continued {
			p.extras = map[string]interface{}{ExtraContinued: true}
		}
		out = append(out, p)
	}

	for _, s := range sentences {
		if runeLen(s) > a.cfg.MaxChunkSize {
			emit()
			for _, w := range a.windowSplit(s) {
				out = append(out, piece{text: w, strategy: strategy})
			}
			current, continued = "", false
			continue
		}

		candidate := join(current, s)
		if current != "" && runeLen(candidate) > a.cfg.MaxChunkSize {
			emit()
			seed := overlapTail(current, a.cfg.ChunkOverlap)
			continued = seed != ""
			candidate = join(seed, s)
			if runeLen(candidate) > a.cfg.MaxChunkSize {
				candidate, continued = s, false
			}
		}
		current = candidate
	}
	emit()
	return out
}

// overlapTail returns the last n characters of text, advanced past the first
// space so the seed starts on a word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return strings.TrimSpace(text)
	}
	tail := runes[len(runes)-n:]
	for i, r := range tail {
		if r == ' ' || r == '\n' || r == '\t' {
			tail = tail[i+1:]
			break
		}
	}
	return strings.TrimSpace(string(tail))
}
