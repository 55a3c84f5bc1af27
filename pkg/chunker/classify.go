package chunker

import (
	"regexp"
	"strings"

	"ai-docqa-be/pkg/normalizer"
)

type DocumentKind string

const (
	KindGeneral   DocumentKind = "general"
	KindSectioned DocumentKind = "sectioned"
	KindTabular   DocumentKind = "tabular"
)

var (
	rowLinePattern = regexp.MustCompile(`(?m)^Row \d+:$`)

	headingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^#{1,6}\s+\S.*$`),                // markdown
		regexp.MustCompile(`^[A-Z][A-Z0-9 &/\-]{2,}:?$`),     // ALL CAPS
		regexp.MustCompile(`^\d+(\.\d+)*\.?\s+[A-Z][^.!?]*$`), // 1. Introduction, 2.3 Scope
		regexp.MustCompile(`^[A-Z][^.!?]{0,80}:$`),           // Title with colon:
	}
)

// Classify decides which strategy a document gets.
func Classify(text, fileType string) DocumentKind {
	if t, _ := normalizer.CanonicalType(fileType); t == normalizer.TypeCSV {
		return KindTabular
	}
	if strings.Contains(text, normalizer.ColumnsPrefix) && rowLinePattern.MatchString(text) {
		return KindTabular
	}
	if countHeadings(text) >= 2 {
		return KindSectioned
	}
	return KindGeneral
}

func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || runeLen(line) > 100 {
		return false
	}
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func countHeadings(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) {
			n++
		}
	}
	return n
}
