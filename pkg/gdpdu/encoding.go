// Package gdpdu reads enforePOS GDPdU receipt exports and writes the
// semicolon-separated tables the accounting package imports.
package gdpdu

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding is the character set of the export and import files.
type Encoding string

const (
	// EncodingLatin1 is what enforePOS writes and ProSaldo expects (IsoLatin1/Windows).
	EncodingLatin1 Encoding = "latin-1"
	EncodingUTF8   Encoding = "utf-8"
)

// ParseEncoding accepts the common spellings of the supported encodings.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return EncodingLatin1, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	}
	return "", fmt.Errorf("unsupported encoding: %s", s)
}

func (e Encoding) codec() encoding.Encoding {
	if e == EncodingUTF8 {
		return unicode.UTF8BOM
	}
	return charmap.ISO8859_1
}

// NewDecodingReader returns a reader yielding UTF-8 text.
func (e Encoding) NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, e.codec().NewDecoder())
}

// NewEncodingWriter returns a writer that converts UTF-8 text to the encoding.
// Characters the encoding cannot represent are replaced. Close flushes.
func (e Encoding) NewEncodingWriter(w io.Writer) io.WriteCloser {
	if e == EncodingUTF8 {
		return transform.NewWriter(w, transform.Nop)
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(e.codec().NewEncoder()))
}
