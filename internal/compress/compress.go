// Package compress wraps the stream codecs used when publishing corpora.
package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Kind identifies a compression algorithm. Its string form is what
// manifests record.
type Kind uint8

const (
	// None stores data as is.
	None Kind = iota
	// LZ4 uses the LZ4 frame format (fast, modest ratio).
	LZ4
	// Zstd uses the Zstandard frame format (better ratio, good for cold data).
	Zstd
)

// String returns the manifest name of k.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Extension returns the object-name suffix for k ("" for None).
func (k Kind) Extension() string {
	switch k {
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// Parse returns the Kind named s. The empty string means None.
func Parse(s string) (Kind, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compress: unknown kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k > Zstd {
		return nil, fmt.Errorf("compress: unknown kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Zstd encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder(w io.Writer) (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		enc := v.(*zstd.Encoder)
		enc.Reset(w)
		return enc, nil
	}
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		dec := v.(*zstd.Decoder)
		if err := dec.Reset(r); err != nil {
			return nil, err
		}
		return dec, nil
	}
	return zstd.NewReader(r)
}

// NewWriter returns a writer that compresses into w. Close must be called
// to flush the final frame; it does not close w.
func NewWriter(w io.Writer, k Kind) (io.WriteCloser, error) {
	switch k {
	case None:
		return nopWriteCloser{w}, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	case Zstd:
		enc, err := getZstdEncoder(w)
		if err != nil {
			return nil, err
		}
		return &zstdWriter{enc: enc}, nil
	default:
		return nil, fmt.Errorf("compress: unknown kind %d", uint8(k))
	}
}

// NewReader returns a reader that decompresses r. Close releases decoder
// state; it does not close r.
func NewReader(r io.Reader, k Kind) (io.ReadCloser, error) {
	switch k {
	case None:
		return io.NopCloser(r), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := getZstdDecoder(r)
		if err != nil {
			return nil, err
		}
		return &zstdReader{dec: dec}, nil
	default:
		return nil, fmt.Errorf("compress: unknown kind %d", uint8(k))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type zstdWriter struct {
	enc *zstd.Encoder
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	if z.enc == nil {
		return 0, io.ErrClosedPipe
	}
	return z.enc.Write(p)
}

func (z *zstdWriter) Close() error {
	if z.enc == nil {
		return nil
	}
	err := z.enc.Close()
	if err == nil {
		zstdEncoderPool.Put(z.enc)
	}
	z.enc = nil
	return err
}

type zstdReader struct {
	dec *zstd.Decoder
}

func (z *zstdReader) Read(p []byte) (int, error) {
	if z.dec == nil {
		return 0, io.ErrClosedPipe
	}
	return z.dec.Read(p)
}

func (z *zstdReader) Close() error {
	if z.dec == nil {
		return nil
	}
	if err := z.dec.Reset(nil); err == nil {
		zstdDecoderPool.Put(z.dec)
	} else {
		z.dec.Close()
	}
	z.dec = nil
	return nil
}
