package persistence

import "encoding/binary"

// Int64View is a zero-copy view of little-endian int64 values.
// It aliases the memory it was built from; it is only valid while that
// memory (usually a mapping) is.
type Int64View struct {
	b []byte
}

// NewInt64View wraps b, ignoring any trailing partial element.
func NewInt64View(b []byte) Int64View {
	return Int64View{b: b[:len(b)/8*8]}
}

// Len returns the number of elements.
func (v Int64View) Len() int { return len(v.b) / 8 }

// At returns element i. It panics if i is out of range, like a slice.
func (v Int64View) At(i int) int64 {
	return int64(binary.LittleEndian.Uint64(v.b[i*8 : i*8+8]))
}

// Slice returns the view of elements [lo, hi).
func (v Int64View) Slice(lo, hi int) Int64View {
	return Int64View{b: v.b[lo*8 : hi*8]}
}

// AppendTo appends every element to dst.
func (v Int64View) AppendTo(dst []int64) []int64 {
	for i := 0; i < v.Len(); i++ {
		dst = append(dst, v.At(i))
	}
	return dst
}

// Copy returns the elements as a freshly allocated slice.
func (v Int64View) Copy() []int64 {
	return v.AppendTo(make([]int64, 0, v.Len()))
}

// Bytes returns the raw little-endian bytes.
func (v Int64View) Bytes() []byte { return v.b }

// Int32View is a zero-copy view of little-endian int32 values.
type Int32View struct {
	b []byte
}

// NewInt32View wraps b, ignoring any trailing partial element.
func NewInt32View(b []byte) Int32View {
	return Int32View{b: b[:len(b)/4*4]}
}

// Len returns the number of elements.
func (v Int32View) Len() int { return len(v.b) / 4 }

// At returns element i. It panics if i is out of range, like a slice.
func (v Int32View) At(i int) int32 {
	return int32(binary.LittleEndian.Uint32(v.b[i*4 : i*4+4]))
}

// Slice returns the view of elements [lo, hi).
func (v Int32View) Slice(lo, hi int) Int32View {
	return Int32View{b: v.b[lo*4 : hi*4]}
}

// AppendTo appends every element to dst.
func (v Int32View) AppendTo(dst []int32) []int32 {
	for i := 0; i < v.Len(); i++ {
		dst = append(dst, v.At(i))
	}
	return dst
}

// Copy returns the elements as a freshly allocated slice.
func (v Int32View) Copy() []int32 {
	return v.AppendTo(make([]int32, 0, v.Len()))
}

// Ints returns the elements widened to int.
func (v Int32View) Ints() []int {
	out := make([]int, v.Len())
	for i := range out {
		out[i] = int(v.At(i))
	}
	return out
}

// Bytes returns the raw little-endian bytes.
func (v Int32View) Bytes() []byte { return v.b }
