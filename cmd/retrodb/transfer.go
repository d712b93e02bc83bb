package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/retrodb"
	"github.com/hupe1980/retrodb/internal/compress"
	"github.com/hupe1980/retrodb/manifest"
)

func runPublish(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "publish", "-prefix out/wiki -name wiki-v1 [-knn train.knn]")
	prefix := fs.String("prefix", "", "dataset prefix")
	name := fs.String("name", "", "corpus name in the store")
	knnPath := fs.String("knn", "", "knn table to publish with the dataset")
	compression := fs.String("compression", e.cfg.Transfer.Compression, "none, lz4 or zstd")
	ioLimit := fs.Int64("io-limit", e.cfg.Transfer.IOLimitBytesPerSec, "bytes per second, 0 for unlimited")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefix == "" || *name == "" {
		fs.Usage()
		return errors.New("need -prefix and -name")
	}

	kind, err := compress.Parse(*compression)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, e.cfg.Store)
	if err != nil {
		return err
	}

	tcfg := e.cfg.Transfer
	tcfg.IOLimitBytesPerSec = *ioLimit
	opts := []retrodb.Option{
		retrodb.WithCompression(kind),
		retrodb.WithController(newController(tcfg)),
		retrodb.WithLogger(e.logger),
	}
	if *knnPath != "" {
		opts = append(opts, retrodb.WithKNN(*knnPath))
	}

	m, err := retrodb.Publish(ctx, store, *prefix, *name, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "published %s (%s): %d files\n", m.Name, m.ID, len(m.Files))
	for _, f := range m.Files {
		fmt.Fprintf(e.stdout, "  %-5s %-24s %12d -> %12d  crc32c=%08x\n",
			f.Role, f.Object, f.Size, f.StoredSize, f.CRC32C)
	}
	return nil
}

func runFetch(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "fetch", "-name wiki-v1 -dir /data")
	name := fs.String("name", "", "corpus name in the store")
	dir := fs.String("dir", ".", "destination directory")
	ioLimit := fs.Int64("io-limit", e.cfg.Transfer.IOLimitBytesPerSec, "bytes per second, 0 for unlimited")
	noVerify := fs.Bool("no-verify", false, "skip re-validating the index after download")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		fs.Usage()
		return errors.New("missing -name")
	}

	store, err := openStore(ctx, e.cfg.Store)
	if err != nil {
		return err
	}

	tcfg := e.cfg.Transfer
	tcfg.IOLimitBytesPerSec = *ioLimit
	prefix, err := retrodb.Fetch(ctx, store, *name, *dir,
		retrodb.WithController(newController(tcfg)),
		retrodb.WithLogger(e.logger),
		retrodb.WithVerify(!*noVerify),
	)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, prefix)
	return nil
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "list", "")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, err := openStore(ctx, e.cfg.Store)
	if err != nil {
		return err
	}

	ms := manifest.NewStore(store, nil)
	names, err := ms.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		m, err := ms.Load(ctx, n)
		if err != nil {
			fmt.Fprintf(e.stdout, "%s\t(unreadable: %v)\n", n, err)
			continue
		}
		fmt.Fprintf(e.stdout, "%s\t%s\t%s\trecords=%d\tchunks=%d\tbytes=%d\n",
			n, m.CreatedAt.Format("2006-01-02T15:04:05Z"), m.DType, m.Records, m.Chunks, m.TotalSize())
	}
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "delete", "-name wiki-v1")
	name := fs.String("name", "", "corpus name in the store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		fs.Usage()
		return errors.New("missing -name")
	}
	store, err := openStore(ctx, e.cfg.Store)
	if err != nil {
		return err
	}
	if err := manifest.NewStore(store, nil).Delete(ctx, *name); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "deleted %s\n", *name)
	return nil
}
