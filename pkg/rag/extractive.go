package rag

import (
	"sort"
	"strings"

	"ai-docqa-be/pkg/segmenter"
	"ai-docqa-be/pkg/textutil"
	"ai-docqa-be/pkg/vectorindex"
)

const (
	FallbackPrefix   = "Based on the uploaded documents, here's what I found:"
	NoResultsMessage = "I couldn't find any relevant information in your uploaded documents to answer this question."
	maxExtractive    = 3
	snippetRunes     = 200
)

type scoredSentence struct {
	text  string
	score int
	order int
}

// Extract builds an answer from the chunks alone: the sentences sharing the
// most keywords with the question, in document order. When no sentence shares
// a keyword the opening of the best chunk is returned.
func Extract(question string, results []vectorindex.SearchResult) string {
	if len(results) == 0 {
		return NoResultsMessage
	}

	keywords := textutil.Keywords(question)
	var candidates []scoredSentence
	seen := make(map[string]struct{})
	order := 0
	for _, r := range results {
		for _, sentence := range segmenter.SplitSentences(r.Text) {
			if _, dup := seen[sentence]; dup {
				continue
			}
			seen[sentence] = struct{}{}
			if score := overlap(keywords, sentence); score > 0 {
				candidates = append(candidates, scoredSentence{text: sentence, score: score, order: order})
			}
			order++
		}
	}

	if len(candidates) == 0 {
		return FallbackPrefix + "\n\n" + snippet(results[0].Text)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxExtractive {
		candidates = candidates[:maxExtractive]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].order < candidates[j].order
	})

	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = c.text
	}
	return FallbackPrefix + "\n\n" + strings.Join(lines, "\n")
}

func overlap(keywords []string, sentence string) int {
	if len(keywords) == 0 {
		return 0
	}
	tokens := make(map[string]struct{})
	for _, tok := range textutil.Tokenize(sentence) {
		tokens[tok] = struct{}{}
	}
	n := 0
	for _, kw := range keywords {
		if _, ok := tokens[kw]; ok {
			n++
		}
	}
	return n
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= snippetRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:snippetRunes])) + "..."
}
