// Package testutil builds in-memory datafile images for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/jchantrell/twmap/internal/format"
	"github.com/klauspost/compress/zlib"
)

// Header field offsets within an image.
const (
	OffMagic        = 0
	OffVersion      = 4
	OffSize         = 8
	OffSwaplen      = 12
	OffNumItemTypes = 16
	OffNumItems     = 20
	OffNumData      = 24
	OffSizeItems    = 28
	OffSizeData     = 32
	OffItemTypes    = 36
)

// Item is an item to be written by a Builder.
type Item struct {
	TypeID uint16
	ID     uint16
	Data   []int32
}

// Builder assembles a datafile image. Items are grouped by type in ascending
// type order; items of one type keep their insertion order.
type Builder struct {
	version format.Version
	items   []Item
	data    [][]byte
}

// NewBuilder creates a builder for the given version.
func NewBuilder(version format.Version) *Builder {
	return &Builder{version: version}
}

// AddItem appends an item.
func (b *Builder) AddItem(typeID, id uint16, data ...int32) *Builder {
	b.items = append(b.items, Item{TypeID: typeID, ID: id, Data: data})
	return b
}

// AddData appends a data entry.
func (b *Builder) AddData(p []byte) *Builder {
	b.data = append(b.data, p)
	return b
}

// Bytes renders the image.
func (b *Builder) Bytes() []byte {
	items := make([]Item, len(b.items))
	copy(items, b.items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].TypeID < items[j].TypeID })

	type typeEntry struct{ id, start, num int32 }
	var types []typeEntry
	for i, item := range items {
		if len(types) == 0 || types[len(types)-1].id != int32(item.TypeID) {
			types = append(types, typeEntry{id: int32(item.TypeID), start: int32(i)})
		}
		types[len(types)-1].num++
	}

	var itemRegion bytes.Buffer
	itemOffsets := make([]int32, len(items))
	for i, item := range items {
		itemOffsets[i] = int32(itemRegion.Len())
		put(&itemRegion, int32(uint32(item.TypeID)<<16|uint32(item.ID)))
		put(&itemRegion, int32(len(item.Data)*4))
		for _, v := range item.Data {
			put(&itemRegion, v)
		}
	}

	var dataRegion bytes.Buffer
	dataOffsets := make([]int32, len(b.data))
	for i, d := range b.data {
		dataOffsets[i] = int32(dataRegion.Len())
		if b.version == format.Version4 {
			zw := zlib.NewWriter(&dataRegion)
			zw.Write(d)
			zw.Close()
		} else {
			dataRegion.Write(d)
		}
	}

	var body bytes.Buffer
	for _, t := range types {
		put(&body, t.id)
		put(&body, t.start)
		put(&body, t.num)
	}
	for _, off := range itemOffsets {
		put(&body, off)
	}
	for _, off := range dataOffsets {
		put(&body, off)
	}
	if b.version == format.Version4 {
		for _, d := range b.data {
			put(&body, int32(len(d)))
		}
	}
	body.Write(itemRegion.Bytes())
	swaplen := format.HeaderVersionSize + format.HeaderSize - format.SizeFieldBase + body.Len()
	body.Write(dataRegion.Bytes())

	var out bytes.Buffer
	out.WriteString(format.Magic)
	put(&out, int32(b.version))
	size := int32(format.HeaderVersionSize + format.HeaderSize - format.SizeFieldBase + body.Len())
	put(&out, size)
	put(&out, int32(swaplen))
	put(&out, int32(len(types)))
	put(&out, int32(len(items)))
	put(&out, int32(len(b.data)))
	put(&out, int32(itemRegion.Len()))
	put(&out, int32(dataRegion.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// Minimal returns the one-item, one-data image used throughout the tests: an
// item of type 5 with id 7 and a 4-byte payload [1 2 3 4].
func Minimal(version format.Version) []byte {
	return NewBuilder(version).
		AddItem(5, 7, 42).
		AddData([]byte{1, 2, 3, 4}).
		Bytes()
}

// PutInt32 overwrites a little-endian int32 at off.
func PutInt32(image []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(image[off:], uint32(v))
}

// Int32 reads a little-endian int32 at off.
func Int32(image []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(image[off:]))
}

func put(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}
