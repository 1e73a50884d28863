package format

// SequentialSource supplies index bytes while an Engine is being built.
//
// Read fills as much of p as the stream yields and returns 0 only at the end
// of the stream. SetSeekBase is called exactly once, when the reader has
// consumed everything up to the start of the data region. EnsureFileSize
// reports whether the file holds at least size bytes from its start; a
// shortfall is a false result, not an error.
type SequentialSource interface {
	Read(p []byte) (int, error)
	SetSeekBase() error
	EnsureFileSize(size uint32) (bool, error)
}

// RandomAccessSource fetches payload bytes after construction.
//
// SeekRead reads into p starting at start bytes past the seek base and
// returns how many bytes it obtained. AllocData returns a fully initialised
// buffer of exactly length bytes.
type RandomAccessSource interface {
	SeekRead(start uint32, p []byte) (int, error)
	AllocData(length int) ([]byte, error)
}
