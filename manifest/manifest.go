package manifest

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/retrodb/codec"
	"github.com/hupe1980/retrodb/internal/compress"
	"github.com/hupe1980/retrodb/persistence"
)

const (
	// FileName is the object name of the manifest inside a corpus.
	FileName = "MANIFEST.json"
	// LocalSuffix is appended to a local prefix for fetched manifests.
	LocalSuffix = ".manifest.json"
	// CurrentVersion is the version of the manifest format.
	CurrentVersion = 1
)

var (
	// ErrIncompatibleVersion is returned when the manifest version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")
	// ErrNotFound is returned when no manifest exists under a name.
	ErrNotFound = errors.New("manifest not found")
	// ErrInvalid is returned by Validate.
	ErrInvalid = errors.New("invalid manifest")
	// ErrChecksumMismatch is matched by transfer verification failures.
	ErrChecksumMismatch = persistence.ErrChecksumMismatch
)

// Role names the part of a corpus a file holds.
type Role string

const (
	RoleIndex Role = "index"
	RoleData  Role = "data"
	RoleKNN   Role = "knn"
)

// Extension returns the local file suffix for r.
func (r Role) Extension() string {
	switch r {
	case RoleIndex:
		return ".idx"
	case RoleData:
		return ".bin"
	case RoleKNN:
		return ".knn"
	default:
		return ""
	}
}

// Manifest describes one published corpus.
type Manifest struct {
	Version     int        `json:"version"`
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	CreatedAt   time.Time  `json:"created_at"`
	Codec       string     `json:"codec"`
	DType       string     `json:"dtype"`
	ChunkSize   int        `json:"chunk_size"`
	RetrievalDB bool       `json:"retrieval_db"`
	Records     int        `json:"records"`
	Chunks      int        `json:"chunks"`
	KNN         *KNNInfo   `json:"knn,omitempty"`
	Files       []FileInfo `json:"files"`
}

// KNNInfo describes the neighbor table shipped with a corpus.
type KNNInfo struct {
	K            int   `json:"k"`
	ChunkStartID int64 `json:"chunk_start_id"`
	ChunkEndID   int64 `json:"chunk_end_id"`
}

// FileInfo describes one transferred file.
type FileInfo struct {
	Role Role `json:"role"`
	// Object is the blob name relative to the corpus.
	Object      string        `json:"object"`
	Size        int64         `json:"size"`
	StoredSize  int64         `json:"stored_size"`
	CRC32C      uint32        `json:"crc32c"`
	Compression compress.Kind `json:"compression"`
}

// Verify compares a received file against the entry.
func (f FileInfo) Verify(size int64, sum uint32) error {
	if size != f.Size || sum != f.CRC32C {
		return fmt.Errorf("%s: %w", f.Object, &persistence.ChecksumMismatchError{
			Expected:     f.CRC32C,
			Actual:       sum,
			ExpectedSize: f.Size,
			ActualSize:   size,
		})
	}
	return nil
}

// New creates a manifest with a fresh id.
func New(name string) *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// ObjectName returns the blob name of the manifest of corpus name.
func ObjectName(name string) string {
	return path.Join(name, FileName)
}

// ObjectPath returns the blob name of a file of corpus name.
func ObjectPath(name string, f FileInfo) string {
	return path.Join(name, f.Object)
}

// File returns the entry with role r.
func (m *Manifest) File(r Role) (FileInfo, bool) {
	for _, f := range m.Files {
		if f.Role == r {
			return f, true
		}
	}
	return FileInfo{}, false
}

// DataType resolves the recorded dtype.
func (m *Manifest) DataType() (persistence.DType, error) {
	d, ok := persistence.DTypeByName(m.DType)
	if !ok {
		return 0, fmt.Errorf("%w: unknown dtype %q", ErrInvalid, m.DType)
	}
	return d, nil
}

// TotalSize returns the uncompressed size of all files.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}

// Validate checks the manifest for internal consistency.
func (m *Manifest) Validate() error {
	if m.Version != CurrentVersion {
		return fmt.Errorf("%w: %d (expected %d)", ErrIncompatibleVersion, m.Version, CurrentVersion)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	if _, err := m.DataType(); err != nil {
		return err
	}
	if m.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d", ErrInvalid, m.ChunkSize)
	}
	if m.Records < 0 || m.Chunks < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalid)
	}

	seen := make(map[Role]bool, len(m.Files))
	objects := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		if f.Role.Extension() == "" {
			return fmt.Errorf("%w: unknown role %q", ErrInvalid, f.Role)
		}
		if seen[f.Role] {
			return fmt.Errorf("%w: duplicate %s file", ErrInvalid, f.Role)
		}
		if f.Object == "" || objects[f.Object] || f.Object == FileName {
			return fmt.Errorf("%w: bad object name %q", ErrInvalid, f.Object)
		}
		if f.Size < 0 || f.StoredSize < 0 {
			return fmt.Errorf("%w: negative size for %s", ErrInvalid, f.Object)
		}
		seen[f.Role] = true
		objects[f.Object] = true
	}
	if !seen[RoleIndex] || !seen[RoleData] {
		return fmt.Errorf("%w: index and data files are required", ErrInvalid)
	}
	if seen[RoleKNN] != (m.KNN != nil) {
		return fmt.Errorf("%w: knn file and knn info must come together", ErrInvalid)
	}
	if m.KNN != nil && (m.KNN.K <= 0 || m.KNN.ChunkEndID < m.KNN.ChunkStartID) {
		return fmt.Errorf("%w: knn k=%d range [%d, %d)", ErrInvalid, m.KNN.K, m.KNN.ChunkStartID, m.KNN.ChunkEndID)
	}
	return nil
}

// Encode validates m and encodes it with c, recording c's name.
func Encode(m *Manifest, c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	m.Codec = c.Name()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return codec.MarshalIndent(c, m)
}

// Decode decodes and validates a manifest, using the codec it names.
func Decode(data []byte) (*Manifest, error) {
	var probe struct {
		Codec string `json:"codec"`
	}
	if err := codec.Default.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	c := codec.Default
	if probe.Codec != "" {
		var ok bool
		if c, ok = codec.ByName(probe.Codec); !ok {
			return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalid, probe.Codec)
		}
	}

	m := &Manifest{}
	if err := c.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
