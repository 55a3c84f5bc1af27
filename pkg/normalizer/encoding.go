package normalizer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

type decoder struct {
	name   string
	decode func(data []byte) (string, bool)
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

var knownDecoders = map[string]decoder{
	"utf-8":        {name: "utf-8", decode: decodeUTF8},
	"utf-16":       {name: "utf-16", decode: decodeUTF16},
	"windows-1252": {name: "windows-1252", decode: decodeWindows1252},
	"iso-8859-1":   {name: "iso-8859-1", decode: decodeLatin1},
}

var defaultEncodings = []string{"utf-8", "utf-16", "windows-1252"}

func decodeUTF8(data []byte) (string, bool) {
	data = bytes.TrimPrefix(data, bomUTF8)
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// decodeUTF16 only accepts input that announces itself with a BOM; guessing
// endianness on arbitrary bytes produces confident garbage.
func decodeUTF16(data []byte) (string, bool) {
	if !bytes.HasPrefix(data, bomUTF16LE) && !bytes.HasPrefix(data, bomUTF16BE) {
		return "", false
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

// decodeWindows1252 rejects the five byte values the code page leaves
// undefined; x/text maps them to C1 controls instead of failing.
func decodeWindows1252(data []byte) (string, bool) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	s := string(out)
	for _, r := range s {
		if (r >= 0x80 && r <= 0x9F) || r == utf8.RuneError {
			return "", false
		}
	}
	return s, true
}

func decodeLatin1(data []byte) (string, bool) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// decodeText tries each decoder in order and falls back to lossy UTF-8. It
// never fails; the returned name says which decoder won ("utf-8-lossy" for
// the fallback).
func decodeText(data []byte, decoders []decoder) (string, string) {
	for _, d := range decoders {
		if s, ok := d.decode(data); ok {
			return s, d.name
		}
	}
	data = bytes.TrimPrefix(data, bomUTF8)
	return strings.ToValidUTF8(string(data), "�"), "utf-8-lossy"
}
