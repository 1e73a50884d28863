package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"syscall"

	"github.com/jchantrell/twmap/internal/checked"
)

// File is the handle a Reader owns. *os.File, afero.File and remote objects
// satisfy it. The size of the file is taken from a Size() int64 method when
// present, otherwise from Stat().
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// maxEmptyReads bounds how many consecutive (0, nil) reads are tolerated
// before a source is considered stuck.
const maxEmptyReads = 100

var errSeekBaseSet = errors.New("seek base already set")

func fileSize(f File) (int64, error) {
	switch v := f.(type) {
	case interface{ Size() int64 }:
		return v.Size(), nil
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := v.Stat()
		if err != nil {
			return 0, fmt.Errorf("stat: %w", err)
		}
		return info.Size(), nil
	default:
		return 0, fmt.Errorf("cannot determine size of %T", f)
	}
}

func interrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// seqSource feeds the format engine while the index is parsed.
type seqSource struct {
	file     File
	r        *bufio.Reader
	start    uint64 // absolute offset of the datafile within file
	consumed uint64
	seekBase uint64
	baseSet  bool
}

func newSeqSource(file File, start uint64) *seqSource {
	return &seqSource{
		file:  file,
		r:     bufio.NewReader(file),
		start: start,
	}
}

func (s *seqSource) Read(p []byte) (int, error) {
	read, empty := 0, 0
	for read < len(p) {
		n, err := s.r.Read(p[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if interrupted(err) {
				continue
			}
			return 0, err
		}
		if n == 0 {
			if empty++; empty >= maxEmptyReads {
				return 0, io.ErrNoProgress
			}
		} else {
			empty = 0
		}
	}

	consumed, ok := checked.Add64(s.consumed, uint64(read))
	if !ok {
		return 0, ErrSeekOverflow
	}
	s.consumed = consumed
	return read, nil
}

func (s *seqSource) SetSeekBase() error {
	if s.baseSet {
		return errSeekBaseSet
	}
	base, ok := checked.Add64(s.start, s.consumed)
	if !ok {
		return ErrSeekOverflow
	}
	s.seekBase = base
	s.baseSet = true
	return nil
}

func (s *seqSource) EnsureFileSize(size uint32) (bool, error) {
	actual, err := fileSize(s.file)
	if err != nil {
		return false, err
	}
	if actual < 0 {
		return false, nil
	}
	remaining, ok := checked.Sub64(uint64(actual), s.start)
	if !ok {
		return false, nil
	}
	return remaining >= uint64(size), nil
}

// randomAccess hands the file over to the query phase. The buffered reader
// is discarded; all later reads are positioned.
func (s *seqSource) randomAccess() (*fileSource, error) {
	if !s.baseSet {
		return nil, errors.New("index parsed without a seek base")
	}
	return &fileSource{file: s.file, seekBase: s.seekBase}, nil
}

// fileSource fetches payloads with positioned reads relative to the seek base.
type fileSource struct {
	file     io.ReaderAt
	seekBase uint64
}

func (s *fileSource) SeekRead(start uint32, p []byte) (int, error) {
	offset, ok := checked.Add64(s.seekBase, uint64(start))
	if !ok {
		return 0, ErrSeekOverflow
	}
	end, ok := checked.Add64(offset, uint64(len(p)))
	if !ok {
		return 0, ErrSeekOverflow
	}
	if _, ok := checked.Int64(end); !ok {
		return 0, ErrSeekOverflow
	}

	read, empty := 0, 0
	for read < len(p) {
		// offset+read <= end <= MaxInt64
		n, err := s.file.ReadAt(p[read:], int64(offset)+int64(read))
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if interrupted(err) {
				continue
			}
			return read, err
		}
		if n == 0 {
			if empty++; empty >= maxEmptyReads {
				return read, io.ErrNoProgress
			}
		} else {
			empty = 0
		}
	}
	return read, nil
}

func (s *fileSource) AllocData(length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("invalid data length %d", length)
	}
	return make([]byte, length), nil
}
