package notes

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultFallbackEncoding is tried when a note file is not valid UTF-8. Older
// karaoke editors wrote Windows-1252.
const DefaultFallbackEncoding = "windows-1252"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type options struct {
	fallback     encoding.Encoding
	fallbackName string
}

func defaultOptions() options {
	return options{
		fallback:     charmap.Windows1252,
		fallbackName: DefaultFallbackEncoding,
	}
}

// Option configures Load and Parse.
type Option func(*options)

// WithFallbackEncoding replaces the single-byte encoding used when the file
// is not valid UTF-8. name is only used in diagnostics.
func WithFallbackEncoding(enc encoding.Encoding, name string) Option {
	return func(o *options) {
		if enc == nil {
			return
		}
		o.fallback = enc
		o.fallbackName = name
	}
}

// LookupEncoding resolves a WHATWG encoding label such as "windows-1252" or
// "iso-8859-15".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// textEncoding remembers how a file was stored so that Save can write it back
// the same way.
type textEncoding struct {
	name   string
	legacy encoding.Encoding // nil for UTF-8
	bom    bool
}

// Name returns "utf-8" or the fallback encoding's name.
func (e textEncoding) Name() string {
	if e.legacy == nil {
		return "utf-8"
	}
	return e.name
}

func decodeText(path string, data []byte, opts options) (string, textEncoding, error) {
	if utf8.Valid(data) {
		enc := textEncoding{name: "utf-8"}
		if bytes.HasPrefix(data, utf8BOM) {
			enc.bom = true
			data = data[len(utf8BOM):]
		}
		return string(data), enc, nil
	}

	decoded, err := opts.fallback.NewDecoder().Bytes(data)
	if err != nil {
		return "", textEncoding{}, &EncodingError{Path: path, Fallback: opts.fallbackName, Err: err}
	}
	text := string(decoded)
	// undefined bytes decode to U+FFFD, which a single-byte file can never contain
	if !utf8.ValidString(text) || strings.ContainsRune(text, utf8.RuneError) {
		return "", textEncoding{}, &EncodingError{Path: path, Fallback: opts.fallbackName}
	}
	return text, textEncoding{name: opts.fallbackName, legacy: opts.fallback}, nil
}

func encodeText(text string, enc textEncoding) ([]byte, error) {
	var out []byte
	if enc.legacy != nil {
		b, err := enc.legacy.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encode as %s: %w", enc.name, err)
		}
		out = b
	} else {
		out = []byte(text)
	}
	if enc.bom {
		out = append(append([]byte{}, utf8BOM...), out...)
	}
	return out, nil
}
