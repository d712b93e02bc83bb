package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("invalid file format")
	// ErrShape is matched by every *ShapeError.
	ErrShape = errors.New("shape mismatch")
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// FormatError reports a file that failed header or layout validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	Path   string
	Reason string
	cause  error
}

// NewFormatError creates a FormatError for path.
func NewFormatError(path, reason string, cause error) *FormatError {
	return &FormatError{Path: path, Reason: reason, cause: cause}
}

func (e *FormatError) Error() string {
	if e.Reason == "" && e.cause != nil {
		if e.Path == "" {
			return e.cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Path, e.cause)
	}
	if e.Path == "" {
		return fmt.Sprintf("invalid file format: %s", e.Reason)
	}
	return fmt.Sprintf("invalid file format: %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.cause }

// ShapeError reports a KNN row whose width differs from the declared K.
type ShapeError struct {
	Expected int
	Actual   int
	Row      int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: row %d has %d columns, expected %d", e.Row, e.Actual, e.Expected)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// IndexError reports an out-of-range record index, chunk id or offset.
// Len is the exclusive upper bound that was violated.
type IndexError struct {
	What   string
	Index  int
	Len    int
	Reason string
}

func (e *IndexError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %d: %s", e.What, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s %d out of range [0, %d)", e.What, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// CheckIndex returns an *IndexError unless 0 <= i < n.
func CheckIndex(what string, i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{What: what, Index: i, Len: n}
	}
	return nil
}

// CheckRange validates a half-open [start, stop) range over n items.
func CheckRange(what string, start, stop, n int) error {
	if start < 0 || start > n {
		return &IndexError{What: what, Index: start, Len: n + 1}
	}
	if stop < start || stop > n {
		return &IndexError{What: what, Index: stop, Len: n + 1, Reason: fmt.Sprintf("stop outside [%d, %d]", start, n)}
	}
	return nil
}
