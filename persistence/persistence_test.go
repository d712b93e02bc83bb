package persistence

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenID int32

func TestDType(t *testing.T) {
	for _, tc := range []struct {
		d    DType
		size int
		name string
	}{
		{Uint8, 1, "uint8"},
		{Int8, 1, "int8"},
		{Int16, 2, "int16"},
		{Uint16, 2, "uint16"},
		{Int32, 4, "int32"},
		{Int64, 8, "int64"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.d.Valid())
			assert.Equal(t, tc.size, tc.d.ItemSize())
			assert.Equal(t, tc.name, tc.d.String())

			parsed, err := ParseDType(uint8(tc.d))
			require.NoError(t, err)
			assert.Equal(t, tc.d, parsed)

			byName, ok := DTypeByName(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.d, byName)
		})
	}

	for _, code := range []uint8{0, 6, 7, 9, 255} {
		_, err := ParseDType(code)
		assert.ErrorIs(t, err, ErrFormat, "code %d", code)
	}
}

func TestDTypeOf(t *testing.T) {
	assert.Equal(t, Uint8, DTypeOf[uint8]())
	assert.Equal(t, Int8, DTypeOf[int8]())
	assert.Equal(t, Int16, DTypeOf[int16]())
	assert.Equal(t, Uint16, DTypeOf[uint16]())
	assert.Equal(t, Int32, DTypeOf[int32]())
	assert.Equal(t, Int64, DTypeOf[int64]())
	assert.Equal(t, Int32, DTypeOf[tokenID]())
}

func TestBestFittingDType(t *testing.T) {
	assert.Equal(t, Uint16, BestFittingDType(50257))
	assert.Equal(t, Int32, BestFittingDType(65500))
	assert.Equal(t, Int32, BestFittingDType(250000))
}

func TestTokens_RoundTrip(t *testing.T) {
	t.Run("int64", func(t *testing.T) {
		src := []int64{0, 1, -1, math.MaxInt64, math.MinInt64}
		b := AppendTokens(nil, src)
		require.Len(t, b, len(src)*8)
		assert.Equal(t, src, CastTokens[int64](b))
		assert.Equal(t, src, DecodeTokens[int64](nil, b))
	})

	t.Run("int8", func(t *testing.T) {
		src := []int8{-128, -1, 0, 127}
		b := AppendTokens(nil, src)
		assert.Equal(t, src, CastTokens[int8](b))
		assert.Equal(t, src, DecodeTokens[int8](nil, b))
	})

	t.Run("uint16", func(t *testing.T) {
		src := []uint16{0, 1, 65535}
		b := AppendTokens(nil, src)
		assert.Equal(t, []byte{0, 0, 1, 0, 0xff, 0xff}, b)
		assert.Equal(t, src, CastTokens[uint16](b))
	})

	t.Run("misaligned falls back to copy", func(t *testing.T) {
		src := []int32{7, -7, 1 << 30}
		b := append([]byte{0xAA}, AppendTokens(nil, src)...)
		assert.Equal(t, src, CastTokens[int32](b[1:]))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, CastTokens[int32](nil))
		assert.Nil(t, AppendTokens[int32](nil, nil))
	})
}

func TestAppendRepeated(t *testing.T) {
	b := AppendRepeated[int16](nil, -2, 3)
	assert.Equal(t, []int16{-2, -2, -2}, DecodeTokens[int16](nil, b))
	assert.Empty(t, AppendRepeated[int16](nil, 1, 0))
}

func TestViews(t *testing.T) {
	var buf bytes.Buffer
	w := NewBinaryWriter(&buf)
	w.WriteInt32s([]int32{1, -2, 3})
	w.WriteInt64s([]int64{10, -20, 30, 40})
	require.NoError(t, w.Err())

	r := NewSliceReader(buf.Bytes())
	v32, err := r.ReadInt32View(3)
	require.NoError(t, err)
	v64, err := r.ReadInt64View(4)
	require.NoError(t, err)
	assert.Empty(t, r.Remaining())

	assert.Equal(t, 3, v32.Len())
	assert.Equal(t, int32(-2), v32.At(1))
	assert.Equal(t, []int32{1, -2, 3}, v32.Copy())
	assert.Equal(t, []int{1, -2, 3}, v32.Ints())
	assert.Equal(t, []int32{-2, 3}, v32.Slice(1, 3).Copy())

	assert.Equal(t, 4, v64.Len())
	assert.Equal(t, int64(30), v64.At(2))
	assert.Equal(t, []int64{-20, 30}, v64.Slice(1, 3).Copy())
	assert.Equal(t, []int64{99, 10, -20, 30, 40}, v64.AppendTo([]int64{99}))
	assert.Len(t, v64.Bytes(), 32)
}

func TestSliceReader_HeaderAndBounds(t *testing.T) {
	var buf bytes.Buffer
	w := NewBinaryWriter(&buf)
	w.WriteMagic(IndexMagic)
	w.WriteUint8(4)
	w.WriteBool(true)
	w.WriteUint64(64)
	require.NoError(t, w.Err())
	assert.Equal(t, int64(MagicSize+8+1+1+8), w.Written())

	r := NewSliceReader(buf.Bytes())
	require.NoError(t, r.ReadMagic(IndexMagic))
	code, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(4), code)
	flag, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), flag)
	cs, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(64), cs)

	_, err = r.ReadUint64()
	assert.ErrorIs(t, err, ErrFormat)
	_, err = r.ReadInt64View(1 << 40)
	assert.ErrorIs(t, err, ErrFormat)

	err = NewSliceReader(buf.Bytes()).ReadMagic(KNNMagic)
	assert.ErrorIs(t, err, ErrFormat)
	err = NewSliceReader([]byte("MMID")).ReadMagic(IndexMagic)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSliceReader_Version(t *testing.T) {
	var buf bytes.Buffer
	w := NewBinaryWriter(&buf)
	w.Write(IndexMagic[:])
	w.WriteUint64(2)
	require.NoError(t, w.Err())

	err := NewSliceReader(buf.Bytes()).ReadMagic(IndexMagic)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "version 2")
}

type failingWriter struct{ after int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("disk full")
	}
	f.after--
	return len(p), nil
}

func TestBinaryWriter_StickyError(t *testing.T) {
	w := NewBinaryWriter(&failingWriter{after: 1})
	w.WriteUint64(1)
	w.WriteUint64(2)
	w.WriteUint64(3)
	require.EqualError(t, w.Err(), "disk full")
	assert.Equal(t, int64(8), w.Written())
}

func TestChecksum(t *testing.T) {
	data := []byte(strings.Repeat("chunk", 100))

	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	_, err := cw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), cw.Size())

	cr := NewChecksumReader(bytes.NewReader(buf.Bytes()))
	_, err = bytes.NewBuffer(nil).ReadFrom(cr)
	require.NoError(t, err)
	assert.Equal(t, cw.Sum(), cr.Sum())
	require.NoError(t, cr.Verify(cw.Size(), cw.Sum()))

	err = cr.Verify(cw.Size(), cw.Sum()+1)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	var cme *ChecksumMismatchError
	require.ErrorAs(t, err, &cme)
	assert.Equal(t, cw.Sum(), cme.Actual)

	assert.ErrorIs(t, cr.Verify(cw.Size()+1, cw.Sum()), ErrChecksumMismatch)
}

func TestErrors(t *testing.T) {
	fe := NewFormatError("/tmp/x.idx", "bad magic", errors.New("inner"))
	assert.ErrorIs(t, fe, ErrFormat)
	assert.EqualError(t, errors.Unwrap(fe), "inner")
	assert.Contains(t, fe.Error(), "/tmp/x.idx")

	se := &ShapeError{Expected: 8, Actual: 7, Row: 3}
	assert.ErrorIs(t, se, ErrShape)
	assert.NotErrorIs(t, se, ErrFormat)

	assert.NoError(t, CheckIndex("record", 1, 2))
	err := CheckIndex("record", 2, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.EqualError(t, err, "record 2 out of range [0, 2)")
	assert.ErrorIs(t, CheckIndex("record", -1, 2), ErrIndexOutOfRange)

	assert.NoError(t, CheckRange("chunk", 0, 5, 5))
	assert.NoError(t, CheckRange("chunk", 5, 5, 5))
	assert.ErrorIs(t, CheckRange("chunk", 0, 6, 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, CheckRange("chunk", 3, 2, 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, CheckRange("chunk", -1, 2, 5), ErrIndexOutOfRange)
}
