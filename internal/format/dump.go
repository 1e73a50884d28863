package format

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
)

// DebugDump writes a human-readable rendering of the whole file to w: the
// header, the item type table, one section per item and one hex dump per data
// entry. The output format is not stable.
func (e *Engine) DebugDump(src RandomAccessSource, w io.Writer) error {
	bw := bufio.NewWriter(w)

	h := e.header
	fmt.Fprintf(bw, "version: %d\n", int32(e.version))
	fmt.Fprintf(bw, "size: %d\nswaplen: %d\n", h.Size, h.Swaplen)
	fmt.Fprintf(bw, "num_item_types: %d\nnum_items: %d\nnum_data: %d\n", h.NumItemTypes, h.NumItems, h.NumData)
	fmt.Fprintf(bw, "size_items: %d\nsize_data: %d\n", h.SizeItems, h.SizeData)

	fmt.Fprintln(bw, "\nitem types:")
	for _, t := range e.itemTypes {
		fmt.Fprintf(bw, "  type_id=%d start=%d num=%d\n", t.ID, t.Start, t.Num)
	}

	fmt.Fprintln(bw, "\nitems:")
	for i, item := range e.items {
		fmt.Fprintf(bw, "  [%d] type_id=%d id=%d size=%d\n", i, item.TypeID, item.ID, len(item.Data)*4)
		if len(item.Data) > 0 {
			fmt.Fprintf(bw, "    %v\n", item.Data)
		}
	}

	fmt.Fprintln(bw, "\ndata:")
	for i := range e.dataOffsets {
		data, err := e.ReadData(src, i)
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "  [%d] offset=%d stored=%d size=%d\n", i, e.dataOffsets[i], e.storedSize(i), len(data))
		if len(data) > 0 {
			if _, err := bw.WriteString(hex.Dump(data)); err != nil {
				return callbackError(err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return callbackError(err)
	}
	return nil
}
