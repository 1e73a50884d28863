package stats

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/format"
	"github.com/jchantrell/twmap/internal/utils"
)

// FileInfo is what a batch learns about one readable file
type FileInfo struct {
	Version   format.Version
	NumItems  int
	NumData   int
	DataBytes int64
	ItemTypes []format.ItemType
}

// Inspect collects FileInfo from an open reader without touching payloads.
// DataBytes is the sum of declared (uncompressed) sizes.
func Inspect(r *datafile.Reader) FileInfo {
	info := FileInfo{
		Version:   r.Version(),
		NumItems:  r.NumItems(),
		NumData:   r.NumData(),
		ItemTypes: slices.Collect(r.ItemTypes()),
	}
	for i := range info.NumData {
		if size, ok := r.DataSize(i); ok {
			info.DataBytes += int64(size)
		}
	}
	return info
}

// Summary aggregates FileInfo across a batch
type Summary struct {
	Files     uint64
	Versions  map[format.Version]uint64
	ItemTypes map[uint16]uint64
	Items     uint64
	Data      uint64
	DataBytes int64
}

// NewSummary returns an empty summary
func NewSummary() *Summary {
	return &Summary{
		Versions:  make(map[format.Version]uint64),
		ItemTypes: make(map[uint16]uint64),
	}
}

// Add folds one file into the summary
func (s *Summary) Add(info FileInfo) {
	s.Files++
	s.Versions[info.Version]++
	for _, t := range info.ItemTypes {
		s.ItemTypes[t.ID] += uint64(t.Num)
	}
	s.Items += uint64(info.NumItems)
	s.Data += uint64(info.NumData)
	s.DataBytes += info.DataBytes
}

// Print writes the version histogram, items per type and payload totals
func (s *Summary) Print(w io.Writer) error {
	var lines []string

	lines = append(lines, "versions:")
	for _, v := range slices.Sorted(maps.Keys(s.Versions)) {
		lines = append(lines, fmt.Sprintf("  %s: %s", v, utils.Number(s.Versions[v])))
	}

	lines = append(lines, "item types:")
	for _, id := range slices.Sorted(maps.Keys(s.ItemTypes)) {
		lines = append(lines, fmt.Sprintf("  %d: %s", id, utils.Number(s.ItemTypes[id])))
	}

	lines = append(lines,
		fmt.Sprintf("files: %s", utils.Number(s.Files)),
		fmt.Sprintf("items: %s", utils.Number(s.Items)),
		fmt.Sprintf("data: %s (%s)", utils.Number(s.Data), utils.Bytes(s.DataBytes)),
	)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
