package manifest

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/retrodb/blobstore"
	"github.com/hupe1980/retrodb/codec"
	"github.com/hupe1980/retrodb/internal/fs"
)

// Store reads and writes manifests in a blob store.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
}

// NewStore creates a new manifest store. A nil codec means codec.Default.
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c}
}

// Save writes the manifest of m.Name. The write is atomic per blob store.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	data, err := Encode(m, s.codec)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, ObjectName(m.Name), data)
}

// Load reads the manifest of corpus name.
func (s *Store) Load(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, s.store, ObjectName(name))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Decode(data)
}

// List returns the names of all published corpora.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if corpus, ok := strings.CutSuffix(n, "/"+FileName); ok {
			out = append(out, corpus)
		}
	}
	return out, nil
}

// Delete removes corpus name. The manifest goes first so a partially
// deleted corpus is never visible.
func (s *Store) Delete(ctx context.Context, name string) error {
	m, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, ObjectName(name)); err != nil {
		return err
	}
	for _, f := range m.Files {
		if err := s.store.Delete(ctx, ObjectPath(name, f)); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile atomically writes m to path on fsys (temp file, sync, rename).
func WriteFile(fsys fs.FileSystem, path string, m *Manifest, c codec.Codec) error {
	if fsys == nil {
		fsys = fs.Default
	}
	data, err := Encode(m, c)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := fs.Create(fsys, tmpPath)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = fsys.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = fsys.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = fsys.Remove(tmpPath)
		return err
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		_ = fsys.Remove(tmpPath)
		return err
	}
	return nil
}

// ReadFile reads a manifest written by WriteFile.
func ReadFile(fsys fs.FileSystem, path string) (*Manifest, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
