// Package charsets sniffs the character encoding of text content.
package charsets

import (
	"bytes"
	"strings"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var boms = []struct {
	bom []byte
	enc string
}{
	{[]byte{0xfe, 0xff}, "utf-16be"},
	{[]byte{0xff, 0xfe}, "utf-16le"},
	{[]byte{0xef, 0xbb, 0xbf}, "utf-8"},
}

// FindEncoding sniffs the encoding of content: a BOM wins, then a charset
// declared in contentType, then content heuristics (HTML meta prescan). A
// nil encoding means the content needs no conversion to be valid UTF-8.
func FindEncoding(content []byte, contentType string) (enc encoding.Encoding, name string) {
	if len(content) == 0 {
		return
	}
	for _, b := range boms {
		if bytes.HasPrefix(content, b.bom) {
			enc, name = htmlcharset.Lookup(b.enc)
			if enc != nil {
				if strings.ToLower(name) == "utf-8" {
					enc = nil
				}
				return
			}
		}
	}
	enc, name, _ = htmlcharset.DetermineEncoding(content, contentType)
	// DetermineEncoding falls back to windows-1252 when it cannot tell;
	// treat that the same as utf-8 and leave the bytes alone.
	if enc == charmap.Windows1252 || strings.ToLower(name) == "utf-8" {
		enc = nil
	}
	return
}
