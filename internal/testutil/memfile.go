package testutil

import (
	"bytes"
	"io"
)

// MemFile is an in-memory, seekable, positioned-read file.
type MemFile struct {
	*bytes.Reader
	size   int64
	closed bool
}

// NewMemFile wraps image.
func NewMemFile(image []byte) *MemFile {
	return &MemFile{Reader: bytes.NewReader(image), size: int64(len(image))}
}

// Size returns the length of the image.
func (f *MemFile) Size() int64 { return f.size }

// Close marks the file closed.
func (f *MemFile) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *MemFile) Closed() bool { return f.closed }

// ChunkedReader returns at most n bytes per Read, to exercise callers that
// must loop over short reads.
type ChunkedReader struct {
	R io.Reader
	N int
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.N {
		p = p[:c.N]
	}
	return c.R.Read(p)
}
