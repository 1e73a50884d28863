// Package datafile opens Teeworlds datafiles from files and serves index
// queries and on-demand payload reads.
//
// Construction parses the whole index through a sequential, buffered source.
// Afterwards the Reader only performs positioned reads relative to the seek
// base recorded during parsing, so it never depends on the handle's cursor.
//
// A Reader is not safe for concurrent use.
package datafile

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/jchantrell/twmap/internal/format"
	"github.com/spf13/afero"
)

// Reader gives access to one datafile. It owns its file handle.
type Reader struct {
	file   File
	source *fileSource
	engine *format.Engine
}

// Open opens the datafile at path. The file is read from its first byte.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Err: err}
	}
	return adopt(f, false)
}

// OpenFs opens the datafile at path within fsys.
func OpenFs(fsys afero.Fs, path string) (*Reader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Err: err}
	}
	return adopt(f, false)
}

// New builds a Reader from f, treating the current position of f as the
// start of the datafile. On success the Reader owns f; on failure the caller
// still does.
func New(f File) (*Reader, error) {
	return newReader(f, true)
}

func adopt(f File, checkInitialOffset bool) (*Reader, error) {
	r, err := newReader(f, checkInitialOffset)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f File, checkInitialOffset bool) (*Reader, error) {
	var start uint64
	if checkInitialOffset {
		pos, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, &Error{Kind: KindStorage, Err: fmt.Errorf("getting initial offset: %w", err)}
		}
		if pos < 0 {
			return nil, &Error{Kind: KindStorage, Err: fmt.Errorf("negative initial offset %d", pos)}
		}
		start = uint64(pos)
	}

	seq := newSeqSource(f, start)
	engine, err := format.New(seq)
	if err != nil {
		return nil, translateError(err)
	}

	source, err := seq.randomAccess()
	if err != nil {
		return nil, &Error{Kind: KindFormat, Err: err}
	}

	slog.Debug("Datafile opened",
		"start", start,
		"seek_base", source.seekBase,
		"version", int(engine.Version()))

	return &Reader{
		file:   f,
		source: source,
		engine: engine,
	}, nil
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.source = nil
	if err != nil {
		return &Error{Kind: KindStorage, Err: err}
	}
	return nil
}

var errClosed = errors.New("reader is closed")

// Version returns the on-disk sub-format.
func (r *Reader) Version() format.Version { return r.engine.Version() }

// Header returns the parsed header.
func (r *Reader) Header() format.Header { return r.engine.Header() }

// NumItems returns the number of items.
func (r *Reader) NumItems() int { return r.engine.NumItems() }

// NumData returns the number of data entries.
func (r *Reader) NumData() int { return r.engine.NumData() }

// NumItemTypes returns the number of item types.
func (r *Reader) NumItemTypes() int { return r.engine.NumItemTypes() }

// Item returns the item at a global index; ok is false when index is out of
// range.
func (r *Reader) Item(index int) (format.Item, bool) { return r.engine.Item(index) }

// ItemType returns the index-th item type.
func (r *Reader) ItemType(index int) (format.ItemType, bool) { return r.engine.ItemType(index) }

// ItemTypeIndices returns the item index range [start, end) of a type.
func (r *Reader) ItemTypeIndices(typeID uint16) (start, end int) {
	return r.engine.ItemTypeIndices(typeID)
}

// FindItem looks up an item by type and id.
func (r *Reader) FindItem(typeID, id uint16) (format.Item, bool) {
	return r.engine.FindItem(typeID, id)
}

// Items yields every item with its global index.
func (r *Reader) Items() iter.Seq2[int, format.Item] { return r.engine.Items() }

// ItemTypes yields every item type.
func (r *Reader) ItemTypes() iter.Seq[format.ItemType] { return r.engine.ItemTypes() }

// ItemTypeItems yields the items of one type.
func (r *Reader) ItemTypeItems(typeID uint16) iter.Seq2[int, format.Item] {
	return r.engine.ItemTypeItems(typeID)
}

// DataSize returns the length ReadData would return, without any I/O.
func (r *Reader) DataSize(index int) (int, bool) { return r.engine.DataSize(index) }

// ReadData reads a data entry from storage. The returned buffer is freshly
// allocated and owned by the caller.
func (r *Reader) ReadData(index int) ([]byte, error) {
	if r.source == nil {
		return nil, &Error{Kind: KindStorage, Err: errClosed}
	}
	data, err := r.engine.ReadData(r.source, index)
	if err != nil {
		return nil, translateError(err)
	}
	return data, nil
}

// DebugDump writes the whole parsed index and every payload to w in an
// unstable, human-readable form.
func (r *Reader) DebugDump(w io.Writer) error {
	if r.source == nil {
		return &Error{Kind: KindStorage, Err: errClosed}
	}
	return translateError(r.engine.DebugDump(r.source, w))
}
