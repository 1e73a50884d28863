// Package stats runs a batch of datafiles and tallies how each one fared.
package stats

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/format"
)

// ErrorStats counts outcomes across a batch. Format errors are tallied by
// value, storage errors are kept individually.
type ErrorStats struct {
	Format  map[format.Error]uint64
	Storage []error
	OK      uint64
}

// NewErrorStats returns an empty tally
func NewErrorStats() *ErrorStats {
	return &ErrorStats{Format: make(map[format.Error]uint64)}
}

// Record counts err; nil counts as ok. Anything that is not a format error
// is a storage error.
func (s *ErrorStats) Record(err error) {
	if err == nil {
		s.OK++
		return
	}
	if fe, ok := datafile.FormatError(err); ok {
		s.Format[*fe]++
		return
	}
	s.Storage = append(s.Storage, err)
}

// Failed returns the number of recorded failures
func (s *ErrorStats) Failed() uint64 {
	var n uint64
	for _, c := range s.Format {
		n += c
	}
	return n + uint64(len(s.Storage))
}

// Total returns the number of recorded outcomes
func (s *ErrorStats) Total() uint64 {
	return s.OK + s.Failed()
}

// Merge adds other into s
func (s *ErrorStats) Merge(other *ErrorStats) {
	for e, c := range other.Format {
		s.Format[e] += c
	}
	s.Storage = append(s.Storage, other.Storage...)
	s.OK += other.OK
}

// Print writes one line per distinct format error (most frequent first),
// one line per storage error and the ok count.
func (s *ErrorStats) Print(w io.Writer) error {
	type tally struct {
		err   format.Error
		count uint64
	}
	tallies := make([]tally, 0, len(s.Format))
	for e, c := range s.Format {
		tallies = append(tallies, tally{e, c})
	}
	slices.SortFunc(tallies, func(a, b tally) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.err.Kind, b.err.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.err.Detail, b.err.Detail)
	})

	for _, t := range tallies {
		if _, err := fmt.Fprintf(w, "%s: %d\n", t.err.Error(), t.count); err != nil {
			return err
		}
	}
	for _, e := range s.Storage {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "ok: %d\n", s.OK)
	return err
}
