// Package compress provides lazily-initialized decompressing readers for
// the content encodings this library understands. Each reader pulls
// compressed bytes from an underlying source and exposes the decompressed
// stream through io.Reader.
package compress

import "io"

// Encoding tokens with a built-in reader.
const (
	Gzip    = "gzip"
	Deflate = "deflate"
	Brotli  = "br"
	Zstd    = "zstd"
)

// Supported reports whether a built-in reader exists for the encoding.
func Supported(encoding string) bool {
	switch encoding {
	case Gzip, Deflate, Brotli, Zstd:
		return true
	}
	return false
}

// NewReader returns a decompressing reader over src for the given encoding
// token, or nil when the token is unknown.
func NewReader(src io.Reader, encoding string) io.Reader {
	switch encoding {
	case Gzip:
		return NewGzipReader(src)
	case Deflate:
		return NewDeflateReader(src)
	case Brotli:
		return NewBrotliReader(src)
	case Zstd:
		return NewZstdReader(src)
	}
	return nil
}
