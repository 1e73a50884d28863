package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

// storedSize returns the on-disk length of a data entry.
func (e *Engine) storedSize(index int) uint32 {
	end := e.sizeData
	if index+1 < len(e.dataOffsets) {
		end = e.dataOffsets[index+1]
	}
	return end - e.dataOffsets[index]
}

// StoredSize returns the on-disk length of a data entry.
func (e *Engine) StoredSize(index int) (int, bool) {
	if index < 0 || index >= len(e.dataOffsets) {
		return 0, false
	}
	return int(e.storedSize(index)), true
}

// DataSize returns the length ReadData will return for a data entry.
func (e *Engine) DataSize(index int) (int, bool) {
	if index < 0 || index >= len(e.dataOffsets) {
		return 0, false
	}
	if e.dataSizes != nil {
		return int(e.dataSizes[index]), true
	}
	return int(e.storedSize(index)), true
}

// ReadData fetches and, for version 4 files, decompresses a data entry. Every
// call goes back to src.
func (e *Engine) ReadData(src RandomAccessSource, index int) ([]byte, error) {
	if index < 0 || index >= len(e.dataOffsets) {
		return nil, malformed(KindIndexOutOfRange, "data index")
	}
	start := e.dataOffsets[index]
	stored := int(e.storedSize(index))

	if e.version == Version3 {
		buf, err := src.AllocData(stored)
		if err != nil {
			return nil, callbackError(err)
		}
		if err := seekReadFull(src, start, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	raw := make([]byte, stored)
	if err := seekReadFull(src, start, raw); err != nil {
		return nil, err
	}
	buf, err := src.AllocData(int(e.dataSizes[index]))
	if err != nil {
		return nil, callbackError(err)
	}
	if err := inflate(raw, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func seekReadFull(src RandomAccessSource, start uint32, buf []byte) error {
	n, err := src.SeekRead(start, buf)
	if err != nil {
		return callbackError(err)
	}
	if n != len(buf) {
		return callbackError(ErrShortRead)
	}
	return nil
}

// inflate decompresses a zlib stream into out, which must be filled exactly.
func inflate(raw []byte, out []byte) error {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return malformed(KindCompression, "invalid zlib header")
	}
	defer zr.Close()

	if _, err := io.ReadFull(zr, out); err != nil {
		return malformed(KindCompression, "data shorter than declared size")
	}
	var extra [1]byte
	n, err := zr.Read(extra[:])
	if n != 0 {
		return malformed(KindCompression, "data longer than declared size")
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return malformed(KindCompression, "corrupt stream")
	}
	return nil
}

// readExact fills buf from src. Running out of bytes is a structural error of
// the given kind.
func readExact(src SequentialSource, buf []byte, short ErrorKind) error {
	read := 0
	for read < len(buf) {
		n, err := src.Read(buf[read:])
		if err != nil {
			return callbackError(err)
		}
		if n == 0 {
			return malformed(short, "unexpected end of file")
		}
		read += n
	}
	return nil
}

func readInt32s(src SequentialSource, count int) ([]int32, error) {
	if count == 0 {
		return nil, nil
	}
	buf := make([]byte, count*4)
	if err := readExact(src, buf, KindTooShort); err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

func quoteMagic(b []byte) string {
	return strconv.QuoteToASCII(string(b))
}
