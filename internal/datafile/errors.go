package datafile

import (
	"errors"
	"fmt"

	"github.com/jchantrell/twmap/internal/format"
)

// ErrorKind distinguishes index-structure failures from storage failures.
type ErrorKind int

const (
	// KindFormat means the index is structurally invalid or inconsistent.
	KindFormat ErrorKind = iota + 1
	// KindStorage means an I/O failure, a short read, a truncated file or an
	// offset computation that would overflow.
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ErrSeekOverflow is a storage error raised when an absolute offset derived
// from file contents does not fit in 64 bits.
var ErrSeekOverflow = errors.New("overflow while calculating seek offset")

// Error is returned by every fallible Reader operation.
//
// The underlying cause is available via errors.Unwrap: a *format.Error for
// KindFormat, the I/O error for KindStorage.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("datafile %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FormatError returns the structural error behind err, if there is one.
func FormatError(err error) (*format.Error, bool) {
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindFormat {
		return nil, false
	}
	var fe *format.Error
	if errors.As(de.Err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsStorage reports whether err is a storage-domain Reader error.
func IsStorage(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindStorage
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return err
	}

	var ce *format.CallbackError
	if errors.As(err, &ce) {
		return &Error{Kind: KindStorage, Err: ce.Err}
	}

	var fe *format.Error
	if errors.As(err, &fe) {
		return &Error{Kind: KindFormat, Err: fe}
	}

	return &Error{Kind: KindStorage, Err: err}
}
