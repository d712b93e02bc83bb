package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/retrodb/codec"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/index"
	"github.com/hupe1980/retrodb/knn"
	"github.com/hupe1980/retrodb/persistence"
)

type datasetSummary struct {
	Prefix      string `json:"prefix"`
	DType       string `json:"dtype"`
	ChunkSize   int    `json:"chunk_size"`
	RetrievalDB bool   `json:"retrieval_db"`
	Records     int    `json:"records"`
	Chunks      int    `json:"chunks"`
	WindowSize  int    `json:"window_size"`
	DataBytes   int64  `json:"data_bytes"`
	Tokens      int64  `json:"tokens"`
}

type knnSummary struct {
	Path         string `json:"path"`
	K            int    `json:"k"`
	Rows         int    `json:"rows"`
	ChunkStartID int64  `json:"chunk_start_id"`
	ChunkEndID   int64  `json:"chunk_end_id"`
}

type inspectOutput struct {
	Dataset *datasetSummary `json:"dataset,omitempty"`
	KNN     *knnSummary     `json:"knn,omitempty"`
	Chunk   any             `json:"chunk,omitempty"`
	Record  any             `json:"record,omitempty"`
}

func summarize(prefix string) (*datasetSummary, error) {
	idx, err := index.Open(dataset.IndexPath(prefix))
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	var tokens int64
	for i := range idx.Len() {
		tokens += int64(idx.Size(i))
	}
	return &datasetSummary{
		Prefix:      prefix,
		DType:       idx.DType().String(),
		ChunkSize:   idx.ChunkSize(),
		RetrievalDB: idx.RetrievalDB(),
		Records:     idx.Len(),
		Chunks:      idx.NumChunks(),
		WindowSize:  idx.WindowSize(),
		DataBytes:   idx.DataSize(),
		Tokens:      tokens,
	}, nil
}

func summarizeKNN(path string) (*knnSummary, error) {
	nbrs, err := knn.Open(path)
	if err != nil {
		return nil, err
	}
	defer nbrs.Close()
	return &knnSummary{
		Path:         path,
		K:            nbrs.K(),
		Rows:         nbrs.Len(),
		ChunkStartID: nbrs.ChunkStartID(),
		ChunkEndID:   nbrs.ChunkEndID(),
	}, nil
}

func runInspect(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "inspect", "[-prefix out/wiki] [-knn train.knn] [-chunk id | -record i]")
	prefix := fs.String("prefix", "", "dataset prefix")
	knnPath := fs.String("knn", "", "knn table path")
	chunk := fs.Int("chunk", -1, "print the window of this chunk id")
	record := fs.Int("record", -1, "print the tokens of this record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefix == "" && *knnPath == "" {
		fs.Usage()
		return errors.New("need -prefix or -knn")
	}

	var out inspectOutput
	if *prefix != "" {
		s, err := summarize(*prefix)
		if err != nil {
			return err
		}
		out.Dataset = s

		dtype, _ := persistence.DTypeByName(s.DType)
		if *chunk >= 0 || *record >= 0 {
			var err error
			switch dtype {
			case persistence.Uint8:
				out.Chunk, out.Record, err = peek[uint8](*prefix, *chunk, *record)
			case persistence.Int8:
				out.Chunk, out.Record, err = peek[int8](*prefix, *chunk, *record)
			case persistence.Int16:
				out.Chunk, out.Record, err = peek[int16](*prefix, *chunk, *record)
			case persistence.Uint16:
				out.Chunk, out.Record, err = peek[uint16](*prefix, *chunk, *record)
			case persistence.Int32:
				out.Chunk, out.Record, err = peek[int32](*prefix, *chunk, *record)
			default:
				out.Chunk, out.Record, err = peek[int64](*prefix, *chunk, *record)
			}
			if err != nil {
				return err
			}
		}
	}
	if *knnPath != "" {
		s, err := summarizeKNN(*knnPath)
		if err != nil {
			return err
		}
		out.KNN = s
	}

	data, err := codec.MarshalIndent(codec.Default, out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, string(data))
	return err
}

// peek copies out a chunk window and a record as int64 slices.
func peek[T persistence.Token](prefix string, chunk, record int) (any, any, error) {
	ds, err := dataset.Open[T](prefix)
	if err != nil {
		return nil, nil, err
	}
	defer ds.Close()

	widen := func(s []T) []int64 {
		out := make([]int64, len(s))
		for i, v := range s {
			out[i] = int64(v)
		}
		return out
	}

	var c, r any
	if chunk >= 0 {
		w, err := ds.Chunk(chunk)
		if err != nil {
			return nil, nil, err
		}
		c = widen(w)
	}
	if record >= 0 {
		rec, err := ds.Get(record)
		if err != nil {
			return nil, nil, err
		}
		r = widen(rec)
	}
	return c, r, nil
}

func runVerify(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "verify", "-prefix out/wiki [-knn train.knn]")
	prefix := fs.String("prefix", "", "dataset prefix")
	knnPath := fs.String("knn", "", "knn table path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefix == "" {
		fs.Usage()
		return errors.New("missing -prefix")
	}

	idx, err := index.Open(dataset.IndexPath(*prefix))
	if err != nil {
		return err
	}
	defer idx.Close()
	if err := idx.Verify(); err != nil {
		return err
	}

	dataPath := dataset.DataPath(*prefix)
	fi, err := os.Stat(dataPath)
	if err != nil {
		return err
	}
	if fi.Size() != idx.DataSize() {
		return persistence.NewFormatError(dataPath,
			fmt.Sprintf("data file has %d bytes, index expects %d", fi.Size(), idx.DataSize()), nil)
	}

	if *knnPath != "" {
		nbrs, err := knn.Open(*knnPath)
		if err != nil {
			return err
		}
		defer nbrs.Close()
		if err := checkNeighborIDs(nbrs, int64(idx.NumChunks())); err != nil {
			return err
		}
	}

	fmt.Fprintf(e.stdout, "ok %s: %d records, %d chunks\n", *prefix, idx.Len(), idx.NumChunks())
	return nil
}

// checkNeighborIDs rejects neighbor ids outside [0, chunks). Negative ids
// mark missing neighbors and are allowed.
func checkNeighborIDs(nbrs *knn.Index, chunks int64) error {
	t := nbrs.Map()
	for i := range t.Rows() {
		for j := range t.K() {
			if id := t.At(i, j); id >= chunks {
				return &persistence.IndexError{
					What:   "neighbor",
					Index:  int(id),
					Len:    int(chunks),
					Reason: fmt.Sprintf("row of chunk %d points past the database", nbrs.ChunkStartID()+int64(i)),
				}
			}
		}
	}
	return nil
}

func runKNNMerge(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "knn-merge", "-out merged.knn shard1.knn shard2.knn ...")
	out := fs.String("out", "", "merged table path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" || fs.NArg() == 0 {
		fs.Usage()
		return errors.New("need -out and at least one shard")
	}
	if err := knn.Merge(*out, fs.Args(), knn.WithLogger(e.logger.Logger)); err != nil {
		return err
	}
	s, err := summarizeKNN(*out)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "merged %d shards into %s: chunks [%d, %d), k=%d\n",
		fs.NArg(), *out, s.ChunkStartID, s.ChunkEndID, s.K)
	return nil
}
