package segmenter

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "inc": {}, "ltd": {}, "co": {}, "no": {},
	"fig": {}, "approx": {}, "dept": {}, "est": {},
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']':
		return true
	}
	return false
}

// SplitSentences breaks text at ., ! or ? followed by whitespace, and at blank
// lines. Decimals, initials and common abbreviations do not end a sentence.
// Returned sentences are trimmed and never empty.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	flush := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && runes[j] == '\n' {
				flush(i)
				i = j
			}
			continue
		}

		if !isTerminator(r) {
			continue
		}

		j := i + 1
		for j < len(runes) && isTerminator(runes[j]) {
			j++
		}
		for j < len(runes) && isCloser(runes[j]) {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			i = j - 1
			continue
		}
		if r == '.' && j == i+1 && isAbbreviation(runes[start:i]) {
			continue
		}
		flush(j)
		i = j - 1
	}
	flush(len(runes))
	return out
}

// isAbbreviation inspects the word immediately before a period.
func isAbbreviation(before []rune) bool {
	k := len(before)
	for k > 0 && !unicode.IsSpace(before[k-1]) {
		k--
	}
	word := strings.TrimLeft(string(before[k:]), "(\"'“‘")
	if word == "" {
		return false
	}
	w := []rune(word)
	if len(w) == 1 && unicode.IsUpper(w[0]) {
		return true
	}
	_, ok := abbreviations[strings.ToLower(word)]
	return ok
}
