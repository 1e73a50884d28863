// Package format parses the Teeworlds datafile container: a header, an item
// type table, item and data offset tables and an item region, followed by a
// data region holding variable-length payloads.
//
// The package never touches files directly. An Engine is built from a
// SequentialSource in one pass over the index and later fetches payloads from
// a RandomAccessSource.
package format

import (
	"encoding/binary"
	"iter"
	"log/slog"
	"sort"
)

// Engine holds the parsed index of one datafile.
type Engine struct {
	version     Version
	header      Header
	itemTypes   []ItemType
	typesByID   []int // indices into itemTypes, ordered by type ID
	items       []Item
	dataOffsets []uint32
	dataSizes   []uint32 // uncompressed sizes, version 4 only
	sizeData    uint32
}

// New reads the index from src. The data region itself is not read; the seek
// base is recorded at its start instead.
func New(src SequentialSource) (*Engine, error) {
	var hv [HeaderVersionSize]byte
	if err := readExact(src, hv[:], KindIncompleteHeader); err != nil {
		return nil, err
	}

	magic := string(hv[:4])
	if magic != Magic && magic != MagicBigEndian {
		return nil, malformed(KindWrongMagic, quoteMagic(hv[:4]))
	}

	version := Version(int32(binary.LittleEndian.Uint32(hv[4:])))
	if version != Version3 && version != Version4 {
		return nil, malformed(KindUnsupportedVersion, version.String())
	}

	var hb [HeaderSize]byte
	if err := readExact(src, hb[:], KindIncompleteHeader); err != nil {
		return nil, err
	}
	header := parseHeader(hb[:])

	fileSize, err := header.check(version)
	if err != nil {
		return nil, err
	}

	// Table sizes below are bounded by the file size once this passes.
	ok, err := src.EnsureFileSize(fileSize)
	if err != nil {
		return nil, callbackError(err)
	}
	if !ok {
		return nil, callbackError(ErrTruncated)
	}

	e := &Engine{
		version:  version,
		header:   header,
		sizeData: uint32(header.SizeData),
	}

	rawTypes, err := readInt32s(src, int(header.NumItemTypes)*3)
	if err != nil {
		return nil, err
	}
	itemOffsets, err := readInt32s(src, int(header.NumItems))
	if err != nil {
		return nil, err
	}
	dataOffsets, err := readInt32s(src, int(header.NumData))
	if err != nil {
		return nil, err
	}
	var dataSizes []int32
	if version == Version4 {
		if dataSizes, err = readInt32s(src, int(header.NumData)); err != nil {
			return nil, err
		}
	}
	itemRegion, err := readInt32s(src, int(header.SizeItems/4))
	if err != nil {
		return nil, err
	}

	if err := e.parseItemTypes(rawTypes); err != nil {
		return nil, err
	}
	if err := e.parseItems(itemOffsets, itemRegion); err != nil {
		return nil, err
	}
	if err := e.parseDataOffsets(dataOffsets); err != nil {
		return nil, err
	}
	if err := e.parseDataSizes(dataSizes); err != nil {
		return nil, err
	}

	if err := src.SetSeekBase(); err != nil {
		return nil, callbackError(err)
	}

	slog.Debug("Datafile index parsed",
		"version", int(version),
		"item_types", len(e.itemTypes),
		"items", len(e.items),
		"data", len(e.dataOffsets),
		"size_data", e.sizeData)

	return e, nil
}

func (e *Engine) parseItemTypes(raw []int32) error {
	n := len(raw) / 3
	e.itemTypes = make([]ItemType, n)
	seen := make(map[int32]bool, n)
	next := 0
	for i := range n {
		typeID, start, num := raw[i*3], raw[i*3+1], raw[i*3+2]
		if typeID < 0 || typeID > 0xffff {
			return malformed(KindMalformedItemTypes, "type id out of range")
		}
		if seen[typeID] {
			return malformed(KindMalformedItemTypes, "duplicate type id")
		}
		seen[typeID] = true
		if num < 0 {
			return malformed(KindMalformedItemTypes, "negative item count")
		}
		if int(start) != next {
			return malformed(KindMalformedItemTypes, "ranges not contiguous")
		}
		next += int(num)
		if next > int(e.header.NumItems) {
			return malformed(KindMalformedItemTypes, "ranges exceed item count")
		}
		e.itemTypes[i] = ItemType{ID: uint16(typeID), Start: int(start), Num: int(num)}
	}
	if next != int(e.header.NumItems) {
		return malformed(KindMalformedItemTypes, "ranges do not cover all items")
	}

	e.typesByID = make([]int, n)
	for i := range e.typesByID {
		e.typesByID[i] = i
	}
	sort.Slice(e.typesByID, func(a, b int) bool {
		return e.itemTypes[e.typesByID[a]].ID < e.itemTypes[e.typesByID[b]].ID
	})
	return nil
}

func (e *Engine) parseItems(offsets []int32, region []int32) error {
	sizeItems := int(e.header.SizeItems)
	e.items = make([]Item, len(offsets))

	typeIdx := 0
	for i, off := range offsets {
		if i == 0 && off != 0 {
			return malformed(KindMalformedItemOffsets, "first offset not zero")
		}
		if off < 0 || off%4 != 0 {
			return malformed(KindMalformedItemOffsets, "offset not 4-aligned")
		}
		end := sizeItems
		if i+1 < len(offsets) {
			end = int(offsets[i+1])
		}
		if end <= int(off) || end > sizeItems {
			return malformed(KindMalformedItemOffsets, "offsets not ascending")
		}
		if end-int(off) < itemHeaderSize {
			return malformed(KindMalformedItemOffsets, "item smaller than its header")
		}

		words := region[off/4 : end/4]
		typeAndID := uint32(words[0])
		size := words[1]
		if int(size) != end-int(off)-itemHeaderSize {
			return malformed(KindMalformedItems, "item size does not match offsets")
		}

		for typeIdx < len(e.itemTypes) && i >= e.itemTypes[typeIdx].End() {
			typeIdx++
		}
		typeID := uint16(typeAndID >> 16)
		if typeIdx >= len(e.itemTypes) || e.itemTypes[typeIdx].ID != typeID {
			return malformed(KindMalformedItems, "item type does not match type table")
		}

		e.items[i] = Item{
			TypeID: typeID,
			ID:     uint16(typeAndID),
			Data:   words[2:len(words):len(words)],
		}
	}
	return nil
}

func (e *Engine) parseDataOffsets(offsets []int32) error {
	e.dataOffsets = make([]uint32, len(offsets))
	prev := int32(0)
	for i, off := range offsets {
		if off < 0 || uint32(off) > e.sizeData {
			return malformed(KindMalformedDataOffsets, "offset outside data region")
		}
		if off < prev {
			return malformed(KindMalformedDataOffsets, "offsets not ascending")
		}
		prev = off
		e.dataOffsets[i] = uint32(off)
	}
	return nil
}

func (e *Engine) parseDataSizes(sizes []int32) error {
	if sizes == nil {
		return nil
	}
	e.dataSizes = make([]uint32, len(sizes))
	for i, size := range sizes {
		if size < 0 {
			return malformed(KindMalformedDataSizes, "negative size")
		}
		if uint64(size) > maxInflatedSize(e.storedSize(i)) {
			return malformed(KindMalformedDataSizes, "size exceeds compression bound")
		}
		e.dataSizes[i] = uint32(size)
	}
	return nil
}

func maxInflatedSize(stored uint32) uint64 {
	// Cannot overflow: stored < 2^32 and the ratio < 2^11.
	return uint64(stored) * maxDeflateRatio
}

// Version returns the sub-format of the file.
func (e *Engine) Version() Version { return e.version }

// Header returns the parsed header.
func (e *Engine) Header() Header { return e.header }

// NumItems returns the number of items.
func (e *Engine) NumItems() int { return len(e.items) }

// NumData returns the number of data entries.
func (e *Engine) NumData() int { return len(e.dataOffsets) }

// NumItemTypes returns the number of item types.
func (e *Engine) NumItemTypes() int { return len(e.itemTypes) }

// Item returns the item at a global index.
func (e *Engine) Item(index int) (Item, bool) {
	if index < 0 || index >= len(e.items) {
		return Item{}, false
	}
	return e.items[index], true
}

// ItemType returns the index-th entry of the item type table.
func (e *Engine) ItemType(index int) (ItemType, bool) {
	if index < 0 || index >= len(e.itemTypes) {
		return ItemType{}, false
	}
	return e.itemTypes[index], true
}

func (e *Engine) lookupType(typeID uint16) (ItemType, bool) {
	i := sort.Search(len(e.typesByID), func(i int) bool {
		return e.itemTypes[e.typesByID[i]].ID >= typeID
	})
	if i < len(e.typesByID) && e.itemTypes[e.typesByID[i]].ID == typeID {
		return e.itemTypes[e.typesByID[i]], true
	}
	return ItemType{}, false
}

// ItemTypeIndices returns the global index range [start, end) of the items of
// a type. The range is empty if the type is absent.
func (e *Engine) ItemTypeIndices(typeID uint16) (start, end int) {
	t, ok := e.lookupType(typeID)
	if !ok {
		return 0, 0
	}
	return t.Start, t.End()
}

// FindItem looks up an item by type and id.
func (e *Engine) FindItem(typeID, id uint16) (Item, bool) {
	start, end := e.ItemTypeIndices(typeID)
	for i := start; i < end; i++ {
		if e.items[i].ID == id {
			return e.items[i], true
		}
	}
	return Item{}, false
}

// Items yields every item with its global index.
func (e *Engine) Items() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		for i, item := range e.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// ItemTypes yields the item type table in file order.
func (e *Engine) ItemTypes() iter.Seq[ItemType] {
	return func(yield func(ItemType) bool) {
		for _, t := range e.itemTypes {
			if !yield(t) {
				return
			}
		}
	}
}

// ItemTypeItems yields the items of one type with their global indices.
func (e *Engine) ItemTypeItems(typeID uint16) iter.Seq2[int, Item] {
	start, end := e.ItemTypeIndices(typeID)
	return func(yield func(int, Item) bool) {
		for i := start; i < end; i++ {
			if !yield(i, e.items[i]) {
				return
			}
		}
	}
}
