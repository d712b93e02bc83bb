package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/retrodb/codec"
	"github.com/hupe1980/retrodb/dataset"
	"github.com/hupe1980/retrodb/persistence"
)

// maxLineBytes bounds one JSON line of token ids.
const maxLineBytes = 64 << 20

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

type buildParams struct {
	input       io.Reader
	prefix      string
	chunkSize   int
	padID       int64
	retrievalDB bool
	merge       []string
}

func runBuild(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "build", "-prefix out/wiki [-input records.jsonl]")
	input := fs.String("input", "-", "JSON lines file, one array of token ids per line (- for stdin)")
	prefix := fs.String("prefix", "", "output prefix (writes <prefix>.idx and <prefix>.bin)")
	dtypeName := fs.String("dtype", e.cfg.Build.DType, "token dtype (uint8, int8, int16, uint16, int32, int64)")
	vocab := fs.Int("vocab", 0, "pick the narrowest dtype for this vocabulary size instead of -dtype")
	chunkSize := fs.Int("chunk-size", e.cfg.Build.ChunkSize, "tokens per chunk")
	padID := fs.Int64("pad", e.cfg.Build.PadID, "padding token id")
	retrievalDB := fs.Bool("retrieval", e.cfg.Build.RetrievalDB, "store a lookahead chunk after every record")
	var merge stringList
	fs.Var(&merge, "merge", "append an existing dataset prefix after the input (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefix == "" {
		fs.Usage()
		return errors.New("missing -prefix")
	}

	dtype, ok := persistence.DTypeByName(*dtypeName)
	if !ok {
		return fmt.Errorf("unknown dtype %q", *dtypeName)
	}
	if *vocab > 0 {
		dtype = persistence.BestFittingDType(*vocab)
	}

	p := buildParams{
		prefix:      *prefix,
		chunkSize:   *chunkSize,
		padID:       *padID,
		retrievalDB: *retrievalDB,
		merge:       merge,
	}
	if *input == "-" {
		p.input = os.Stdin
	} else {
		f, err := os.Open(*input)
		if err != nil {
			return err
		}
		defer f.Close()
		p.input = f
	}

	var n int
	var err error
	switch dtype {
	case persistence.Uint8:
		n, err = buildAs[uint8](ctx, e, p)
	case persistence.Int8:
		n, err = buildAs[int8](ctx, e, p)
	case persistence.Int16:
		n, err = buildAs[int16](ctx, e, p)
	case persistence.Uint16:
		n, err = buildAs[uint16](ctx, e, p)
	case persistence.Int32:
		n, err = buildAs[int32](ctx, e, p)
	default:
		n, err = buildAs[int64](ctx, e, p)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "built %s: %d records (%s)\n", p.prefix, n, dtype)
	return nil
}

func buildAs[T persistence.Token](ctx context.Context, e *env, p buildParams) (int, error) {
	pad, err := narrow[T](p.padID)
	if err != nil {
		return 0, fmt.Errorf("pad id: %w", err)
	}

	b, err := dataset.NewBuilder(dataset.DataPath(p.prefix), p.chunkSize, pad, p.retrievalDB,
		dataset.WithLogger(e.logger.Logger))
	if err != nil {
		return 0, err
	}
	defer b.Close()

	sc := bufio.NewScanner(p.input)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	c := codec.GoJSON{}
	line := 0
	var ids []int64
	var tokens []T
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		ids = ids[:0]
		if err := c.Unmarshal([]byte(text), &ids); err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		tokens = tokens[:0]
		for _, id := range ids {
			t, err := narrow[T](id)
			if err != nil {
				return 0, fmt.Errorf("line %d: %w", line, err)
			}
			tokens = append(tokens, t)
		}
		if err := b.AddItem(tokens); err != nil {
			return 0, err
		}
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}

	for _, m := range p.merge {
		if err := b.MergeFile(m); err != nil {
			return 0, fmt.Errorf("merge %s: %w", m, err)
		}
	}

	n := b.Len()
	if err := b.Finalize(dataset.IndexPath(p.prefix)); err != nil {
		return 0, err
	}
	return n, nil
}

// narrow converts a token id to T, rejecting ids T cannot hold.
func narrow[T persistence.Token](v int64) (T, error) {
	t := T(v)
	if int64(t) != v {
		return 0, fmt.Errorf("token id %d does not fit %s", v, persistence.DTypeOf[T]())
	}
	return t, nil
}

var _ flag.Value = (*stringList)(nil)
