package compress

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// ZstdReader decodes on the calling goroutine: concurrency stays at 1 so
// the source is never read from anywhere but the caller of Read.
type ZstdReader struct {
	src  io.Reader
	zr   *zstd.Decoder // lazily-initialized zstd reader
	zerr error         // sticky error
}

func NewZstdReader(src io.Reader) *ZstdReader {
	return &ZstdReader{src: src}
}

func (zr *ZstdReader) Read(p []byte) (n int, err error) {
	if zr.zerr != nil {
		return 0, zr.zerr
	}
	if zr.zr == nil {
		zr.zr, err = zstd.NewReader(zr.src, zstd.WithDecoderConcurrency(1))
		if err != nil {
			zr.zerr = err
			return 0, err
		}
	}
	return zr.zr.Read(p)
}
