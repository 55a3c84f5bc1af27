package normalizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ai-docqa-be/pkg/ragerr"
)

// Markers shared with the table chunker.
const (
	DatasetPrefix = "Dataset: "
	ColumnsPrefix = "Columns: "
	RowPrefix     = "Row "
)

type columnStats struct {
	numeric  bool
	seen     int
	min, max float64
	distinct map[string]struct{}
}

func (n *Normalizer) normalizeCSV(data []byte, filename string) (*Result, error) {
	text, enc := decodeText(data, n.decoders)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ragerr.Extraction("normalize.csv", "empty csv", nil)
	}
	if err != nil {
		return nil, ragerr.Extraction("normalize.csv", "read header", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.Join(strings.Fields(h), " ")
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = h
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ragerr.Extraction("normalize.csv", fmt.Sprintf("read row %d", len(rows)+1), err)
		}
		if isBlankRecord(rec) {
			continue
		}
		row := make([]string, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}

	return &Result{
		Text:     renderTable(filename, columns, rows),
		Encoding: enc,
		Rows:     len(rows),
	}, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func renderTable(filename string, columns []string, rows [][]string) string {
	stats := summarize(columns, rows)

	var b strings.Builder
	if filename == "" {
		filename = "dataset.csv"
	}
	b.WriteString(DatasetPrefix + filename + "\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", len(rows)))
	b.WriteString(ColumnsPrefix + strings.Join(columns, ", ") + "\n")
	b.WriteString("Column summary:\n")
	for i, col := range columns {
		b.WriteString("  " + col + ": " + stats[i].describe() + "\n")
	}

	for i, row := range rows {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s%d:\n", RowPrefix, i+1))
		for j, col := range columns {
			b.WriteString("  " + col + ": " + indentContinuation(row[j]) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// indentContinuation keeps the later lines of a multi-line cell inside their
// row, so no cell line can read as a row marker.
func indentContinuation(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.ReplaceAll(value, "\n", "\n    ")
}

func summarize(columns []string, rows [][]string) []columnStats {
	stats := make([]columnStats, len(columns))
	for i := range stats {
		stats[i] = columnStats{numeric: true, distinct: make(map[string]struct{})}
	}
	for _, row := range rows {
		for i, v := range row {
			if v == "" {
				continue
			}
			s := &stats[i]
			s.distinct[v] = struct{}{}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				s.numeric = false
				continue
			}
			if s.seen == 0 || f < s.min {
				s.min = f
			}
			if s.seen == 0 || f > s.max {
				s.max = f
			}
			s.seen++
		}
	}
	return stats
}

func (s columnStats) describe() string {
	if len(s.distinct) == 0 {
		return "empty"
	}
	if s.numeric {
		return fmt.Sprintf("numeric (min %s, max %s)", formatNumber(s.min), formatNumber(s.max))
	}
	return fmt.Sprintf("text (%d distinct values)", len(s.distinct))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
