// Package normalizer turns raw uploaded bytes into the single text blob the
// chunker works on.
package normalizer

import (
	"strings"

	"ai-docqa-be/pkg/ragerr"
)

const (
	TypeText = "txt"
	TypeCSV  = "csv"
	TypePDF  = "pdf"
)

// Result is the normalized text plus what was learned while producing it.
type Result struct {
	Text     string
	FileType string
	Encoding string
	Pages    int
	Rows     int
}

type Option func(*Normalizer)

// WithEncodings replaces the prioritized decoder list used for text and CSV
// input. Unknown names are ignored.
func WithEncodings(names ...string) Option {
	return func(n *Normalizer) {
		var ds []decoder
		for _, name := range names {
			if d, ok := knownDecoders[strings.ToLower(name)]; ok {
				ds = append(ds, d)
			}
		}
		n.decoders = ds
	}
}

// WithPageAnnotations prefixes every PDF page with "[Page N]".
func WithPageAnnotations(enabled bool) Option {
	return func(n *Normalizer) {
		n.annotatePages = enabled
	}
}

type Normalizer struct {
	decoders      []decoder
	annotatePages bool
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{annotatePages: true}
	for _, name := range defaultEncodings {
		n.decoders = append(n.decoders, knownDecoders[name])
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CanonicalType lowercases a declared type and strips a leading dot. The
// second return is false for types the normalizer cannot handle.
func CanonicalType(fileType string) (string, bool) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
	switch t {
	case TypeText, TypeCSV, TypePDF:
		return t, true
	}
	return t, false
}

func (n *Normalizer) Normalize(data []byte, filename, fileType string) (string, error) {
	res, err := n.NormalizeDetailed(data, filename, fileType)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (n *Normalizer) NormalizeDetailed(data []byte, filename, fileType string) (*Result, error) {
	t, ok := CanonicalType(fileType)
	if !ok {
		return nil, ragerr.UnsupportedFormat("normalize", fileType)
	}

	var (
		res *Result
		err error
	)
	switch t {
	case TypeText:
		res = n.normalizeText(data)
	case TypeCSV:
		res, err = n.normalizeCSV(data, filename)
	case TypePDF:
		res, err = n.normalizePDF(data)
	}
	if err != nil {
		return nil, err
	}

	res.FileType = t
	if strings.TrimSpace(res.Text) == "" {
		return nil, ragerr.Extraction("normalize."+t, "no extractable text", nil)
	}
	return res, nil
}

func (n *Normalizer) normalizeText(data []byte) *Result {
	text, enc := decodeText(data, n.decoders)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return &Result{Text: strings.TrimSpace(text), Encoding: enc}
}
