package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipReader wraps a compressed source so it can lazily
// call gzip.NewReader on the first call to Read
type GzipReader struct {
	src  io.Reader
	zr   *gzip.Reader // lazily-initialized gzip reader
	zerr error        // sticky error
}

func NewGzipReader(src io.Reader) *GzipReader {
	return &GzipReader{src: src}
}

func (gz *GzipReader) Read(p []byte) (n int, err error) {
	if gz.zerr != nil {
		return 0, gz.zerr
	}
	if gz.zr == nil {
		gz.zr, err = gzip.NewReader(gz.src)
		if err != nil {
			gz.zerr = err
			return 0, err
		}
	}
	return gz.zr.Read(p)
}
