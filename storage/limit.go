package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encoding names a Content-Encoding this package knows how to decompress.
type Encoding string

const (
	EncodingIdentity Encoding = ""
	EncodingGzip     Encoding = "gzip"
	EncodingZstd     Encoding = "zstd"
)

// ErrLimitExceeded is returned once a LimitedReader has yielded limit bytes
// and a caller asks for more.
var ErrLimitExceeded = errors.New("storage: upload exceeds configured limit")

// LimitedReader decompresses an upload per its encoding and caps the
// number of decompressed bytes obtainable from it, so a compressed upload
// cannot inflate past upload_limit before the limit check has a chance to
// run. Grounded on spec.md §5's Backpressure requirement.
type LimitedReader struct {
	r     io.Reader
	n     int64
	limit int64
	close func() error
}

// NewLimitedReader wraps r, decompressing per enc, bounding reads to at
// most limit decompressed bytes.
func NewLimitedReader(r io.Reader, enc Encoding, limit int64) (*LimitedReader, error) {
	dec, closeFn, err := decompress(r, enc)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s decoder: %w", enc, err)
	}
	return &LimitedReader{r: dec, limit: limit, close: closeFn}, nil
}

func decompress(r io.Reader, enc Encoding) (io.Reader, func() error, error) {
	switch enc {
	case EncodingIdentity:
		return r, func() error { return nil }, nil
	case EncodingGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz.Close, nil
	case EncodingZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() error { zr.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content-encoding %q", enc)
	}
}

// Read implements io.Reader, erroring with ErrLimitExceeded once limit
// decompressed bytes have been produced.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.n >= l.limit {
		return 0, ErrLimitExceeded
	}
	if remain := l.limit - l.n; int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := l.r.Read(p)
	l.n += int64(n)
	return n, err
}

// Close releases the underlying decompressor, if any.
func (l *LimitedReader) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}
