package chunker

import (
	"strconv"
	"strings"

	"ai-docqa-be/pkg/normalizer"
)

type tableRow struct {
	number int
	text   string
}

// splitTable separates the header block (everything before the first
// "Row N:" line) from the row blocks.
func splitTable(text string) (string, []tableRow) {
	lines := strings.Split(text, "\n")

	var (
		header []string
		rows   []tableRow
		cur    []string
		num    int
	)
	flush := func() {
		if len(cur) > 0 {
			rows = append(rows, tableRow{number: num, text: strings.TrimRight(strings.Join(cur, "\n"), "\n")})
		}
		cur = nil
	}

	for _, line := range lines {
		if n, ok := rowNumber(line); ok {
			flush()
			num = n
			cur = []string{line}
			continue
		}
		if cur != nil {
			cur = append(cur, line)
		} else {
			header = append(header, line)
		}
	}
	flush()
	return strings.TrimSpace(strings.Join(header, "\n")), rows
}

func rowNumber(line string) (int, bool) {
	if !strings.HasPrefix(line, normalizer.RowPrefix) || !strings.HasSuffix(line, ":") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, normalizer.RowPrefix), ":"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func renderRows(header string, rows []tableRow) string {
	parts := make([]string, 0, len(rows)+1)
	if header != "" {
		parts = append(parts, header)
	}
	for _, r := range rows {
		parts = append(parts, r.text)
	}
	return strings.Join(parts, "\n\n")
}

// tableChunks packs whole rows behind a copy of the header block. A row is
// never split; a row too large for any chunk gets a chunk of its own.
func (a *Assembler) tableChunks(text string) []piece {
	header, rows := splitTable(text)
	if len(rows) == 0 {
		return []piece{{text: header, strategy: StrategyTable}}
	}

	var (
		out []piece
		cur []tableRow
	)
	emit := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, piece{
			text:     renderRows(header, cur),
			strategy: StrategyTable,
			extras: map[string]interface{}{
				ExtraRowStart: cur[0].number,
				ExtraRowEnd:   cur[len(cur)-1].number,
			},
		})
		cur = nil
	}

	for _, r := range rows {
		if len(cur) > 0 && runeLen(renderRows(header, append(cur[:len(cur):len(cur)], r))) > a.cfg.MaxChunkSize {
			emit()
		}
		cur = append(cur, r)
	}
	emit()
	return out
}
