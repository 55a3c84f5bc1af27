package normalizer

import (
	"bytes"
	"fmt"
	"strings"

	"ai-docqa-be/pkg/ragerr"

	"github.com/ledongthuc/pdf"
)

func (n *Normalizer) normalizePDF(data []byte) (res *Result, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = ragerr.Extraction("normalize.pdf", "corrupt pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ragerr.Extraction("normalize.pdf", "open pdf", err)
	}

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, ragerr.Extraction("normalize.pdf", fmt.Sprintf("read page %d", i), err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if n.annotatePages {
			text = fmt.Sprintf("[Page %d]\n%s", i, text)
		}
		pages = append(pages, text)
	}

	return &Result{
		Text:     strings.Join(pages, "\n\n"),
		Encoding: "pdf",
		Pages:    total,
	}, nil
}
