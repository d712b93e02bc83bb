package main

import (
	"context"
	"fmt"

	"github.com/hupe1980/retrodb/blobstore"
	miniostore "github.com/hupe1980/retrodb/blobstore/minio"
	s3store "github.com/hupe1980/retrodb/blobstore/s3"
	"github.com/hupe1980/retrodb/internal/config"
	"github.com/hupe1980/retrodb/resource"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// openStore builds the blob store named by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (blobstore.BlobStore, error) {
	switch cfg.Kind {
	case "local":
		return blobstore.NewLocalStore(cfg.Root), nil
	case "s3":
		opts := []s3store.Option{s3store.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.Endpoint))
		}
		return s3store.New(ctx, cfg.Bucket, opts...)
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: !cfg.Insecure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, err
		}
		return miniostore.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

func newController(cfg config.TransferConfig) *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:       cfg.MemoryLimitBytes,
		MaxConcurrentTransfers: cfg.MaxConcurrentTransfers,
		IOLimitBytesPerSec:     cfg.IOLimitBytesPerSec,
	})
}
