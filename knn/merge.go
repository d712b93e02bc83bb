package knn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Merge concatenates the shard tables at srcs into dst. Shards may be
// given in any order; sorted by chunk start id they must share K and
// cover consecutive chunk ranges. The merged table starts at the lowest
// shard's chunk start id. dst must not be one of srcs.
func Merge(dst string, srcs []string, opts ...Option) (err error) {
	if len(srcs) == 0 {
		return errors.New("knn: merge needs at least one shard")
	}
	for _, p := range srcs {
		if sameFile(dst, p) {
			return fmt.Errorf("%w: %s", ErrMergeIntoSource, p)
		}
	}

	shards := make([]*Index, 0, len(srcs))
	defer func() {
		for _, s := range shards {
			_ = s.Close()
		}
	}()
	for _, p := range srcs {
		s, err := Open(p)
		if err != nil {
			return err
		}
		shards = append(shards, s)
	}

	sort.Slice(shards, func(i, j int) bool {
		return shards[i].ChunkStartID() < shards[j].ChunkStartID()
	})
	for i := 1; i < len(shards); i++ {
		prev, cur := shards[i-1], shards[i]
		if cur.K() != prev.K() {
			return fmt.Errorf("knn: %s has k=%d, %s has k=%d", cur.Path(), cur.K(), prev.Path(), prev.K())
		}
		if cur.ChunkStartID() != prev.ChunkEndID() {
			return fmt.Errorf("%w: %s ends at %d, %s starts at %d",
				ErrNotContiguous, prev.Path(), prev.ChunkEndID(), cur.Path(), cur.ChunkStartID())
		}
	}

	opts = append(opts, WithChunkStartID(shards[0].ChunkStartID()))
	w, err := NewWriter(dst, shards[0].K(), opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for _, s := range shards {
		if err := w.writeTable(s.Map()); err != nil {
			return err
		}
		w.logger.Debug("knn shard merged", "source", s.Path(), "rows", s.Len())
	}
	return nil
}

// sameFile reports whether a and b name the same file, by path or, when
// both exist, by identity (links).
func sameFile(a, b string) bool {
	if absA, err := filepath.Abs(a); err == nil {
		if absB, err := filepath.Abs(b); err == nil && absA == absB {
			return true
		}
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
