package datafile

// DataIter reads every data entry of a Reader in index order. It is
// forward-only and cannot be rewound; call Reader.DataIter again to start
// over. The Reader must not be used for anything else while iterating.
//
//	it := r.DataIter()
//	for it.Next() {
//		data, err := it.Data()
//		...
//	}
type DataIter struct {
	r    *Reader
	next int
	end  int

	index int
	data  []byte
	err   error
}

// DataIter returns an iterator over indices 0..NumData.
func (r *Reader) DataIter() *DataIter {
	return &DataIter{r: r, end: r.NumData(), index: -1}
}

// Next advances to the next entry and reads it. It returns false once every
// entry has been visited. A read failure does not stop the iteration; it is
// reported by Data for that entry.
func (it *DataIter) Next() bool {
	if it.next >= it.end {
		it.data, it.err = nil, nil
		return false
	}
	it.index = it.next
	it.next++
	it.data, it.err = it.r.ReadData(it.index)
	return true
}

// Index returns the index of the current entry.
func (it *DataIter) Index() int { return it.index }

// Data returns the result of reading the current entry.
func (it *DataIter) Data() ([]byte, error) { return it.data, it.err }

// Len returns the number of entries not yet visited.
func (it *DataIter) Len() int { return it.end - it.next }
