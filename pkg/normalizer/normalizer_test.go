package normalizer

import (
	"strings"
	"testing"

	"ai-docqa-be/pkg/ragerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UnsupportedFormat(t *testing.T) {
	_, err := New().Normalize([]byte("x"), "a.docx", "docx")
	assert.ErrorIs(t, err, ragerr.ErrUnsupportedFormat)
}

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"TXT", "txt", true},
		{".csv", "csv", true},
		{" pdf ", "pdf", true},
		{"xlsx", "xlsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CanonicalType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNormalize_TextEncodings(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		want     string
		encoding string
	}{
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("héllo\r\nworld ")...), "héllo\nworld", "utf-8"},
		{"utf-16 le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi", "utf-16"},
		{"windows-1252", []byte("caf\xe9 \x93quoted\x94"), "café “quoted”", "windows-1252"},
		{"lossy fallback", []byte("abc\x81def\xff"), "abc�def�", "utf-8-lossy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().NormalizeDetailed(tt.data, "notes.txt", "txt")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Text)
			assert.Equal(t, tt.encoding, res.Encoding)
		})
	}
}

func TestNormalize_CustomEncodingList(t *testing.T) {
	res, err := New(WithEncodings("utf-8", "iso-8859-1")).NormalizeDetailed([]byte("abc\x81"), "a.txt", "txt")
	require.NoError(t, err)
	assert.Equal(t, "iso-8859-1", res.Encoding)
}

func TestNormalize_EmptyTextIsExtractionError(t *testing.T) {
	_, err := New().Normalize([]byte("  \n\t "), "blank.txt", "txt")
	assert.ErrorIs(t, err, ragerr.ErrExtraction)
}

func TestNormalize_CSV(t *testing.T) {
	data := []byte("id,name,score\n1,Alice,9.5\n2,Bob,7\n3,Carol,8\n")

	res, err := New().NormalizeDetailed(data, "people.csv", "csv")
	require.NoError(t, err)

	want := "Dataset: people.csv\n" +
		"Rows: 3\n" +
		"Columns: id, name, score\n" +
		"Column summary:\n" +
		"  id: numeric (min 1, max 3)\n" +
		"  name: text (3 distinct values)\n" +
		"  score: numeric (min 7, max 9.5)\n" +
		"\n" +
		"Row 1:\n  id: 1\n  name: Alice\n  score: 9.5\n" +
		"\n" +
		"Row 2:\n  id: 2\n  name: Bob\n  score: 7\n" +
		"\n" +
		"Row 3:\n  id: 3\n  name: Carol\n  score: 8"

	assert.Equal(t, want, res.Text)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "csv", res.FileType)
}

func TestNormalize_CSVRaggedAndBlankRows(t *testing.T) {
	data := []byte("a,,c\n1,2\n\n,,\n4,5,6,7\n")

	res, err := New().NormalizeDetailed(data, "ragged.csv", "CSV")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Contains(t, res.Text, "Columns: a, column_2, c")
	assert.Contains(t, res.Text, "Row 1:\n  a: 1\n  column_2: 2\n  c: \n")
	assert.Contains(t, res.Text, "Row 2:\n  a: 4\n  column_2: 5\n  c: 6")
	assert.NotContains(t, res.Text, "7")
}

func TestNormalize_CSVMultilineCells(t *testing.T) {
	data := []byte("id,\"long\nnote\"\n1,\"first line\r\nRow 7:\nlast\"\n2,plain\n")

	res, err := New().NormalizeDetailed(data, "notes.csv", "csv")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rows)
	assert.Contains(t, res.Text, "Columns: id, long note\n")
	assert.Contains(t, res.Text, "Row 1:\n  id: 1\n  long note: first line\n    Row 7:\n    last\n\nRow 2:")
	for _, line := range strings.Split(res.Text, "\n") {
		assert.NotEqual(t, "Row 7:", line)
	}
}

func TestNormalize_CSVHeaderOnly(t *testing.T) {
	res, err := New().NormalizeDetailed([]byte("id,name\n"), "", "csv")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Dataset: dataset.csv")
	assert.Contains(t, res.Text, "Rows: 0")
	assert.Contains(t, res.Text, "  id: empty")
}

func TestNormalize_CSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte("")},
		{"bad quoting", []byte("id,name\n1,\"unterminated\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Normalize(tt.data, "bad.csv", "csv")
			assert.ErrorIs(t, err, ragerr.ErrExtraction)
		})
	}
}

func TestNormalize_CorruptPDF(t *testing.T) {
	_, err := New().Normalize([]byte("%PDF-1.4 this is not really a pdf"), "broken.pdf", "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ragerr.ErrExtraction)
}
