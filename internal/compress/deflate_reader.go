package compress

import (
	"io"

	"github.com/klauspost/compress/flate"
)

type DeflateReader struct {
	src io.Reader
	dr  io.ReadCloser // lazily-initialized deflate reader
}

func NewDeflateReader(src io.Reader) *DeflateReader {
	return &DeflateReader{src: src}
}

func (df *DeflateReader) Read(p []byte) (n int, err error) {
	if df.dr == nil {
		df.dr = flate.NewReader(df.src)
	}
	return df.dr.Read(p)
}
