package persistence

import (
	"fmt"
	"unsafe"
)

// DType identifies the element type of a data blob. The numeric values are
// the codes stored in index headers.
type DType uint8

const (
	Uint8  DType = 1
	Int8   DType = 2
	Int16  DType = 3
	Int32  DType = 4
	Int64  DType = 5
	Uint16 DType = 8
)

// Token is the set of element types a data blob can hold.
type Token interface {
	~uint8 | ~int8 | ~int16 | ~uint16 | ~int32 | ~int64
}

// ParseDType validates an on-disk dtype code.
// Codes 6 and 7 (floating point) are legal in the legacy format but never
// hold token ids, so they are rejected like unknown codes.
func ParseDType(code uint8) (DType, error) {
	d := DType(code)
	if !d.Valid() {
		return 0, fmt.Errorf("%w: unknown dtype code %d", ErrFormat, code)
	}
	return d, nil
}

// Valid reports whether d is a supported dtype.
func (d DType) Valid() bool {
	switch d {
	case Uint8, Int8, Int16, Int32, Int64, Uint16:
		return true
	}
	return false
}

// ItemSize returns the width of one element in bytes.
func (d DType) ItemSize() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32:
		return 4
	case Int64:
		return 8
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// DTypeByName resolves the names returned by String.
func DTypeByName(name string) (DType, bool) {
	for _, d := range []DType{Uint8, Int8, Int16, Uint16, Int32, Int64} {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}

// DTypeOf returns the dtype matching the Go type T.
func DTypeOf[T Token]() DType {
	var z T
	z--
	signed := z < 0
	switch unsafe.Sizeof(z) {
	case 1:
		if signed {
			return Int8
		}
		return Uint8
	case 2:
		if signed {
			return Int16
		}
		return Uint16
	case 4:
		return Int32
	default:
		return Int64
	}
}

// BestFittingDType returns the narrowest dtype able to hold every id of a
// vocabulary with vocabSize entries.
func BestFittingDType(vocabSize int) DType {
	if vocabSize < 65500 {
		return Uint16
	}
	return Int32
}
