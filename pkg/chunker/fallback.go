package chunker

import (
	"strings"
	"unicode"
)

func (a *Assembler) fallbackChunks(text string) []piece {
	windows := a.windowSplit(text)
	out := make([]piece, 0, len(windows))
	for _, w := range windows {
		out = append(out, piece{text: w, strategy: StrategyFallback})
	}
	return out
}

// windowSplit cuts text into windows of at most MaxChunkSize characters. A
// window end is pulled back to the last sentence end in its second half,
// else the last space there, else cut hard. Consecutive windows share
// ChunkOverlap characters, snapped forward to a word start. Non-empty input
// always yields at least one window.
func (a *Assembler) windowSplit(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	size := a.cfg.MaxChunkSize

	var out []string
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else {
			end = snapEnd(runes, start, end)
		}

		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			out = append(out, w)
		}
		if end >= n {
			break
		}

		next := end - a.cfg.ChunkOverlap
		if next <= start {
			next = end
		}
		start = snapStart(runes, next, end)
	}
	return out
}

func snapEnd(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(runes[i]) && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func snapStart(runes []rune, pos, limit int) int {
	if pos <= 0 || unicode.IsSpace(runes[pos-1]) {
		return pos
	}
	for k := pos; k < limit; k++ {
		if unicode.IsSpace(runes[k]) {
			return k + 1
		}
	}
	return pos
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
