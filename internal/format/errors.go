package format

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a structural problem in a datafile index.
type ErrorKind int

const (
	KindWrongMagic ErrorKind = iota + 1
	KindUnsupportedVersion
	KindIncompleteHeader
	KindMalformedHeader
	KindMalformedItemTypes
	KindMalformedItemOffsets
	KindMalformedItems
	KindMalformedDataOffsets
	KindMalformedDataSizes
	KindTooShort
	KindCompression
	KindIndexOutOfRange
)

var kindNames = map[ErrorKind]string{
	KindWrongMagic:           "wrong magic",
	KindUnsupportedVersion:   "unsupported version",
	KindIncompleteHeader:     "incomplete header",
	KindMalformedHeader:      "malformed header",
	KindMalformedItemTypes:   "malformed item types",
	KindMalformedItemOffsets: "malformed item offsets",
	KindMalformedItems:       "malformed items",
	KindMalformedDataOffsets: "malformed data offsets",
	KindMalformedDataSizes:   "malformed data sizes",
	KindTooShort:             "index too short",
	KindCompression:          "compression error",
	KindIndexOutOfRange:      "index out of range",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error describes why an index could not be built or a payload could not be
// decoded. Values are comparable so that batch tools can tally them: Detail
// never carries per-file offsets, only a fixed description of the violated rule
// (or the offending magic/version).
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func malformed(kind ErrorKind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

// CallbackError wraps a failure reported by a read source or an output sink.
// It is never a statement about the index structure.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string {
	return e.Err.Error()
}

func (e *CallbackError) Unwrap() error { return e.Err }

// ErrTruncated is reported (wrapped in a CallbackError) when the header
// declares more bytes than the underlying file holds.
var ErrTruncated = errors.New("declared file size exceeds actual file size")

// ErrShortRead is reported (wrapped in a CallbackError) when a payload read
// returns fewer bytes than the index promised.
var ErrShortRead = errors.New("short read of data entry")

func callbackError(err error) error {
	var ce *CallbackError
	if errors.As(err, &ce) {
		return err
	}
	return &CallbackError{Err: err}
}
