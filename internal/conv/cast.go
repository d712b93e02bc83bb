package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is matched by every failed conversion.
var ErrOverflow = errors.New("integer overflow")

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d cannot be converted to int", ErrOverflow, v)
	}
	return int(v), nil
}

// Uint64ToInt64 converts uint64 to int64 safely.
func Uint64ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d cannot be converted to int64", ErrOverflow, v)
	}
	return int64(v), nil
}

// Uint64ToInt32 converts uint64 to an int bounded by math.MaxInt32, the
// largest chunk size and neighbor count headers may carry.
func Uint64ToInt32(v uint64) (int, error) {
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d exceeds int32", ErrOverflow, v)
	}
	return int(v), nil
}

// Int64ToUint64 converts a non-negative int64 to uint64.
func Int64ToUint64(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOverflow, v)
	}
	return uint64(v), nil
}
