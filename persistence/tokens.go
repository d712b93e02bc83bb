package persistence

import (
	"encoding/binary"
	"unsafe"
)

var hostLittleEndian = isLittleEndian()

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

// IsLittleEndian reports whether the host stores integers little-endian,
// which is the precondition for zero-copy token views.
func IsLittleEndian() bool { return hostLittleEndian }

// CastTokens returns the tokens stored in b.
//
// On little-endian hosts with b aligned to the element size the result
// aliases b. Otherwise the tokens are decoded into a new slice.
// Trailing bytes that do not form a whole element are ignored.
func CastTokens[T Token](b []byte) []T {
	var z T
	size := int(unsafe.Sizeof(z))
	n := len(b) / size
	if n == 0 {
		return []T{}
	}
	if hostLittleEndian && uintptr(unsafe.Pointer(&b[0]))%uintptr(size) == 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
	}
	return DecodeTokens[T](make([]T, 0, n), b[:n*size])
}

// DecodeTokens appends the little-endian tokens in b to dst.
func DecodeTokens[T Token](dst []T, b []byte) []T {
	var z T
	switch unsafe.Sizeof(z) {
	case 1:
		for _, v := range b {
			dst = append(dst, T(v))
		}
	case 2:
		for i := 0; i+2 <= len(b); i += 2 {
			dst = append(dst, T(binary.LittleEndian.Uint16(b[i:])))
		}
	case 4:
		for i := 0; i+4 <= len(b); i += 4 {
			dst = append(dst, T(binary.LittleEndian.Uint32(b[i:])))
		}
	default:
		for i := 0; i+8 <= len(b); i += 8 {
			dst = append(dst, T(binary.LittleEndian.Uint64(b[i:])))
		}
	}
	return dst
}

// AppendTokens appends the little-endian encoding of src to dst.
func AppendTokens[T Token](dst []byte, src []T) []byte {
	if len(src) == 0 {
		return dst
	}
	var z T
	size := int(unsafe.Sizeof(z))
	if hostLittleEndian {
		return append(dst, unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*size)...)
	}
	for _, v := range src {
		switch size {
		case 1:
			dst = append(dst, byte(v))
		case 2:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
		case 4:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(v))
		default:
			dst = binary.LittleEndian.AppendUint64(dst, uint64(v))
		}
	}
	return dst
}

// AppendRepeated appends n copies of v, little-endian encoded.
func AppendRepeated[T Token](dst []byte, v T, n int) []byte {
	if n <= 0 {
		return dst
	}
	var one [8]byte
	var z T
	size := int(unsafe.Sizeof(z))
	switch size {
	case 1:
		one[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(one[:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(one[:], uint32(v))
	default:
		binary.LittleEndian.PutUint64(one[:], uint64(v))
	}
	for range n {
		dst = append(dst, one[:size]...)
	}
	return dst
}
