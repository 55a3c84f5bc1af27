package chunker

import (
	"context"
	"strings"
)

type section struct {
	heading string
	body    []string
}

func splitSections(text string) []section {
	var (
		out []section
		cur section
	)
	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) {
			if cur.heading != "" || strings.TrimSpace(strings.Join(cur.body, "")) != "" {
				out = append(out, cur)
			}
			cur = section{heading: strings.TrimSpace(line)}
			continue
		}
		cur.body = append(cur.body, line)
	}
	if cur.heading != "" || strings.TrimSpace(strings.Join(cur.body, "")) != "" {
		out = append(out, cur)
	}
	return out
}

// sectionedChunks runs the general strategy inside each heading-delimited
// section so no chunk straddles two sections.
func (a *Assembler) sectionedChunks(ctx context.Context, text string) ([]piece, error) {
	var out []piece
	for _, sec := range splitSections(text) {
		body := strings.TrimSpace(strings.Join(sec.body, "\n"))
		sectionText := body
		if sec.heading != "" {
			// The blank line makes the heading a sentence of its own.
			sectionText = strings.TrimSpace(sec.heading + "\n\n" + body)
		}
		if sectionText == "" {
			continue
		}

		pieces, err := a.generalChunks(ctx, sectionText)
		if err != nil {
			return nil, err
		}
		for _, p := range pieces {
			p.strategy = StrategySectioned
			if sec.heading != "" {
				if p.extras == nil {
					p.extras = map[string]interface{}{}
				}
				p.extras[ExtraSection] = strings.TrimLeft(sec.heading, "# ")
			}
			out = append(out, p)
		}
	}
	return out, nil
}
