package retrodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/retrodb/blobstore"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/index"
	"github.com/hupe1980/retrodb/internal/compress"
	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/knn"
	"github.com/hupe1980/retrodb/manifest"
	"github.com/hupe1980/retrodb/persistence"
	"github.com/hupe1980/retrodb/resource"
	"golang.org/x/sync/errgroup"
)

// copyBufferSize is the per-transfer buffer charged against the
// controller's memory limit.
const copyBufferSize = 1 << 20

type localFile struct {
	role manifest.Role
	path string
}

// Publish uploads the dataset at prefix (and optionally a KNN table, see
// WithKNN) to store as corpus name. Files are compressed, checksummed and
// uploaded in parallel; the manifest is written last, so readers never see
// a partially published corpus.
func Publish(ctx context.Context, store blobstore.BlobStore, prefix, name string, opts ...Option) (m *manifest.Manifest, err error) {
	o := applyOptions(opts)
	logger := o.logger.WithCorpus(name).WithPrefix(prefix)
	defer func() {
		if m != nil {
			logger.LogPublish(ctx, name, len(m.Files), m.TotalSize(), err)
		} else {
			logger.LogPublish(ctx, name, 0, 0, err)
		}
	}()

	if name == "" {
		return nil, errors.New("retrodb: empty corpus name")
	}

	m, files, err := describe(prefix, name, o)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(prefix)
	for i, f := range files {
		m.Files[i].Role = f.role
		m.Files[i].Object = base + f.role.Extension() + o.compression.Extension()
		m.Files[i].Compression = o.compression
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			return upload(gctx, store, f.path, manifest.ObjectPath(name, m.Files[i]), &m.Files[i], o, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := manifest.NewStore(store, o.codec).Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// describe opens the local files and fills the layout part of the manifest.
func describe(prefix, name string, o options) (*manifest.Manifest, []localFile, error) {
	idx, err := index.Open(dataset.IndexPath(prefix))
	if err != nil {
		return nil, nil, err
	}
	defer idx.Close()

	dataPath := dataset.DataPath(prefix)
	fi, err := o.fs.Stat(dataPath)
	if err != nil {
		return nil, nil, err
	}
	if fi.Size() != idx.DataSize() {
		return nil, nil, persistence.NewFormatError(dataPath,
			fmt.Sprintf("data file has %d bytes, index expects %d", fi.Size(), idx.DataSize()), nil)
	}

	m := manifest.New(name)
	m.DType = idx.DType().String()
	m.ChunkSize = idx.ChunkSize()
	m.RetrievalDB = idx.RetrievalDB()
	m.Records = idx.Len()
	m.Chunks = idx.NumChunks()

	files := []localFile{
		{role: manifest.RoleIndex, path: dataset.IndexPath(prefix)},
		{role: manifest.RoleData, path: dataPath},
	}

	if o.knnPath != "" {
		nbrs, err := knn.Open(o.knnPath)
		if err != nil {
			return nil, nil, err
		}
		m.KNN = &manifest.KNNInfo{
			K:            nbrs.K(),
			ChunkStartID: nbrs.ChunkStartID(),
			ChunkEndID:   nbrs.ChunkEndID(),
		}
		_ = nbrs.Close()
		files = append(files, localFile{role: manifest.RoleKNN, path: o.knnPath})
	}

	m.Files = make([]manifest.FileInfo, len(files))
	return m, files, nil
}

// acquire takes a transfer slot and a copy buffer from c.
func acquire(ctx context.Context, c *resource.Controller) (buf []byte, release func(), err error) {
	if err := c.AcquireTransfer(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.AcquireMemory(ctx, copyBufferSize); err != nil {
		c.ReleaseTransfer()
		return nil, nil, err
	}
	return make([]byte, copyBufferSize), func() {
		c.ReleaseMemory(copyBufferSize)
		c.ReleaseTransfer()
	}, nil
}

func upload(ctx context.Context, store blobstore.BlobStore, path, object string, info *manifest.FileInfo, o options, logger *Logger) (err error) {
	buf, release, err := acquire(ctx, o.controller)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() {
		took := time.Since(start)
		o.metricsCollector.RecordUpload(info.Size, info.StoredSize, took, err)
		logger.LogTransfer(ctx, "upload", object, info.Size, info.StoredSize, took, err)
	}()

	f, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	blob, err := store.Create(ctx, object)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = blob.Abort()
		}
	}()

	stored := persistence.NewChecksumWriter(blob)
	cw, err := compress.NewWriter(stored, info.Compression)
	if err != nil {
		return err
	}
	src := persistence.NewChecksumReader(resource.NewRateLimitedReader(ctx, f, o.controller))
	if _, err := io.CopyBuffer(cw, src, buf); err != nil {
		_ = cw.Close()
		return fmt.Errorf("upload %s: %w", object, err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}

	info.Size = src.Size()
	info.CRC32C = src.Sum()
	info.StoredSize = stored.Size()
	return nil
}

// Fetch downloads corpus name from store into dir and returns the local
// prefix, ready for dataset.Open. Every file is decompressed, verified
// against its manifest size and CRC32C, and renamed into place only when
// intact. The manifest is stored next to the dataset.
func Fetch(ctx context.Context, store blobstore.BlobStore, name, dir string, opts ...Option) (prefix string, err error) {
	o := applyOptions(opts)
	logger := o.logger.WithCorpus(name)
	defer func() { logger.LogFetch(ctx, name, prefix, err) }()

	m, err := manifest.NewStore(store, o.codec).Load(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}

	idxInfo, _ := m.File(manifest.RoleIndex)
	prefix = filepath.Join(dir, localBase(idxInfo))
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range m.Files {
		g.Go(func() error {
			return download(gctx, store, manifest.ObjectPath(name, f), prefix+f.Role.Extension(), f, o, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if o.verify {
		if err := verifyLocal(prefix, m); err != nil {
			return "", err
		}
	}

	if err := manifest.WriteFile(o.fs, prefix+manifest.LocalSuffix, m, o.codec); err != nil {
		return "", err
	}
	return prefix, nil
}

// localBase strips the role and compression suffixes from an object name.
func localBase(f manifest.FileInfo) string {
	base := strings.TrimSuffix(filepath.Base(f.Object), f.Compression.Extension())
	return strings.TrimSuffix(base, f.Role.Extension())
}

func download(ctx context.Context, store blobstore.BlobStore, object, dst string, info manifest.FileInfo, o options, logger *Logger) (err error) {
	buf, release, err := acquire(ctx, o.controller)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() {
		took := time.Since(start)
		o.metricsCollector.RecordDownload(info.Size, info.StoredSize, took, err)
		logger.LogTransfer(ctx, "download", object, info.Size, info.StoredSize, took, err)
	}()

	blob, err := store.Open(ctx, object)
	if err != nil {
		return err
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return err
	}
	defer rc.Close()

	dr, err := compress.NewReader(resource.NewRateLimitedReader(ctx, rc, o.controller), info.Compression)
	if err != nil {
		return fmt.Errorf("download %s: %w", object, err)
	}
	defer dr.Close()

	tmp := dst + ".tmp-" + uuid.NewString()
	f, err := fs.Create(o.fs, tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = o.fs.Remove(tmp)
		}
	}()

	src := persistence.NewChecksumReader(dr)
	if _, err := io.CopyBuffer(f, src, buf); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", object, err)
	}
	if err := info.Verify(src.Size(), src.Sum()); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return o.fs.Rename(tmp, dst)
}

// verifyLocal re-opens the fetched index and checks it against the manifest.
func verifyLocal(prefix string, m *manifest.Manifest) error {
	idx, err := index.Open(dataset.IndexPath(prefix))
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.Verify(); err != nil {
		return err
	}
	if idx.DType().String() != m.DType || idx.ChunkSize() != m.ChunkSize ||
		idx.RetrievalDB() != m.RetrievalDB || idx.Len() != m.Records || idx.NumChunks() != m.Chunks {
		return persistence.NewFormatError(idx.Path(), "index does not match manifest", nil)
	}

	if m.KNN != nil {
		nbrs, err := knn.Open(prefix + manifest.RoleKNN.Extension())
		if err != nil {
			return err
		}
		defer nbrs.Close()
		if nbrs.K() != m.KNN.K || nbrs.ChunkStartID() != m.KNN.ChunkStartID || nbrs.ChunkEndID() != m.KNN.ChunkEndID {
			return persistence.NewFormatError(nbrs.Path(), "knn table does not match manifest", nil)
		}
	}
	return nil
}
