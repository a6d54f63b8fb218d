package compress

import (
	"io"

	"github.com/andybalholm/brotli"
)

type BrotliReader struct {
	src io.Reader
	br  io.Reader // lazily-initialized brotli reader
}

func NewBrotliReader(src io.Reader) *BrotliReader {
	return &BrotliReader{src: src}
}

func (br *BrotliReader) Read(p []byte) (n int, err error) {
	if br.br == nil {
		br.br = brotli.NewReader(br.src)
	}
	return br.br.Read(p)
}
