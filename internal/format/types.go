package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/jchantrell/twmap/internal/checked"
)

// Version is the on-disk sub-format of a datafile.
type Version int32

const (
	// Version3 stores data entries uncompressed.
	Version3 Version = 3
	// Version4 stores zlib-compressed data entries plus their uncompressed sizes.
	Version4 Version = 4
)

func (v Version) String() string {
	return fmt.Sprintf("v%d", int32(v))
}

// Constants for the datafile layout
const (
	// Magic identifies a datafile; MagicBigEndian is written by big-endian hosts.
	Magic          = "DATA"
	MagicBigEndian = "ATAD"

	// HeaderVersionSize covers the magic and the version field.
	HeaderVersionSize = 8
	// HeaderSize covers the seven counters following the version.
	HeaderSize = 28
	// SizeFieldBase is the number of leading bytes not counted by Header.Size.
	SizeFieldBase = 16

	itemTypeSize   = 12
	itemHeaderSize = 8

	// maxDeflateRatio bounds how far a deflate stream can expand.
	maxDeflateRatio = 1032
)

// Header is the fixed-size block following the magic and version.
type Header struct {
	Size         int32
	Swaplen      int32
	NumItemTypes int32
	NumItems     int32
	NumData      int32
	SizeItems    int32
	SizeData     int32
}

// ItemType is one entry of the item type table. Items of the type occupy the
// global index range [Start, Start+Num).
type ItemType struct {
	ID    uint16
	Start int
	Num   int
}

// End returns one past the last item index of the type.
func (t ItemType) End() int {
	return t.Start + t.Num
}

// Item is a typed metadata record. Data aliases the parsed index and must not
// be modified.
type Item struct {
	TypeID uint16
	ID     uint16
	Data   []int32
}

func parseHeader(buf []byte) Header {
	le := binary.LittleEndian
	return Header{
		Size:         int32(le.Uint32(buf[0:])),
		Swaplen:      int32(le.Uint32(buf[4:])),
		NumItemTypes: int32(le.Uint32(buf[8:])),
		NumItems:     int32(le.Uint32(buf[12:])),
		NumData:      int32(le.Uint32(buf[16:])),
		SizeItems:    int32(le.Uint32(buf[20:])),
		SizeData:     int32(le.Uint32(buf[24:])),
	}
}

// check validates the header counters against each other and returns the
// total file size it declares.
func (h Header) check(version Version) (uint32, error) {
	if h.Size < 0 || h.Swaplen < 0 || h.NumItemTypes < 0 || h.NumItems < 0 ||
		h.NumData < 0 || h.SizeItems < 0 || h.SizeData < 0 {
		return 0, malformed(KindMalformedHeader, "negative field")
	}
	if h.Swaplen > h.Size {
		return 0, malformed(KindMalformedHeader, "swaplen exceeds size")
	}
	if h.SizeItems%4 != 0 {
		return 0, malformed(KindMalformedHeader, "item region not 4-aligned")
	}

	offsetEntries := uint64(h.NumItems) + uint64(h.NumData)
	if version == Version4 {
		offsetEntries += uint64(h.NumData)
	}
	typesSize, ok1 := checked.Mul64(uint64(h.NumItemTypes), itemTypeSize)
	offsetsSize, ok2 := checked.Mul64(offsetEntries, 4)
	expected, ok3 := checked.Sum64(
		HeaderVersionSize+HeaderSize-SizeFieldBase,
		typesSize,
		offsetsSize,
		uint64(h.SizeItems),
		uint64(h.SizeData),
	)
	if !ok1 || !ok2 || !ok3 {
		return 0, malformed(KindMalformedHeader, "size overflow")
	}
	if uint64(h.Size) < expected {
		return 0, malformed(KindMalformedHeader, "size smaller than tables")
	}

	total, ok := checked.Add64(uint64(h.Size), SizeFieldBase)
	if !ok || total > math.MaxUint32 {
		return 0, malformed(KindMalformedHeader, "file size overflow")
	}
	return uint32(total), nil
}
