// Package refindex builds the immutable assay/compound reference lookup
// from the master reference table. The table is scanned in parallel
// chunks; the merged map is read-only for the rest of the run.
package refindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/assayloom-cli/internal/tabular"
)

// Key identifies one reference record.
type Key struct {
	AID     int
	CID     int
	Outcome string
}

func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %s)", k.AID, k.CID, k.Outcome)
}

// Record holds the reference fields for one key. Cells keep their
// presence flag so a missing reference value still overlays as missing
// during augmentation.
type Record map[string]tabular.Cell

// Index is the immutable key -> record map. Safe for concurrent reads
// after Build returns.
type Index struct {
	records map[Key]Record
	cols    []string
}

// Options tunes the parallel build.
type Options struct {
	ChunkRows int // rows per worker chunk
	Workers   int // max concurrent chunk workers
}

// DefaultOptions returns build settings sized for reference tables in
// the tens-of-megabytes range.
func DefaultOptions() Options {
	return Options{ChunkRows: 20000, Workers: 8}
}

// Build scans the reference file and assembles the index. Chunk-local
// maps are computed in parallel and merged in ascending chunk order, so
// a duplicated key deterministically resolves to its last occurrence in
// file order no matter which worker finishes first. A reference file
// that cannot be opened or parsed is fatal to the run.
func Build(ctx context.Context, path string, opt Options, log *zap.Logger) (*Index, error) {
	if opt.ChunkRows <= 0 {
		opt.ChunkRows = DefaultOptions().ChunkRows
	}
	if opt.Workers <= 0 {
		opt.Workers = DefaultOptions().Workers
	}

	cr, err := tabular.OpenChunked(path, opt.ChunkRows)
	if err != nil {
		return nil, fmt.Errorf("reference table: %w", err)
	}
	defer cr.Close()

	var chunks []*tabular.Chunk
	for {
		chunk, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reference table: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	partials := make([]map[Key]Record, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = indexChunk(chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reference table: %w", err)
	}

	ix := &Index{records: make(map[Key]Record)}
	// merge in chunk order: last writer in file order wins on collisions
	for _, part := range partials {
		for k, v := range part {
			ix.records[k] = v
		}
	}
	ix.cols = collectColumns(cr.Header())
	log.Info("reference index built",
		zap.String("path", path),
		zap.Int("chunks", len(partials)),
		zap.Int("keys", len(ix.records)))
	return ix, nil
}

func indexChunk(chunk *tabular.Chunk) map[Key]Record {
	out := make(map[Key]Record, chunk.Len())
	for i := range chunk.Rows {
		aid, okA := tabular.ParseInt(chunk.Get(i, "aid"))
		cid, okC := tabular.ParseInt(chunk.Get(i, "cid"))
		if !okA || !okC {
			continue
		}
		rec := make(Record, len(chunk.Cols))
		for _, col := range chunk.Cols {
			rec[col] = chunk.Get(i, col)
		}
		out[Key{AID: aid, CID: cid, Outcome: chunk.Get(i, "activity_outcome").Value}] = rec
	}
	return out
}

func collectColumns(header []string) []string {
	cols := append([]string(nil), header...)
	sort.Strings(cols)
	return cols
}

// Lookup returns the reference record for a key, if present.
func (ix *Index) Lookup(aid, cid int, outcome string) (Record, bool) {
	rec, ok := ix.records[Key{AID: aid, CID: cid, Outcome: outcome}]
	return rec, ok
}

// Len returns the number of indexed keys.
func (ix *Index) Len() int { return len(ix.records) }

// Columns returns the sorted column names carried by reference records.
// Schema discovery unions these with the source headers.
func (ix *Index) Columns() []string {
	return append([]string(nil), ix.cols...)
}

// Dump writes the index as sorted "key: value" lines for audit.
func (ix *Index) Dump(path string) error {
	keys := make([]Key, 0, len(ix.records))
	for k := range ix.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AID != keys[j].AID {
			return keys[i].AID < keys[j].AID
		}
		if keys[i].CID != keys[j].CID {
			return keys[i].CID < keys[j].CID
		}
		return keys[i].Outcome < keys[j].Outcome
	})
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		rec := ix.records[k]
		cols := make([]string, 0, len(rec))
		for col := range rec {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		var b strings.Builder
		b.WriteString(k.String())
		b.WriteString(": {")
		for i, col := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			cell := rec[col]
			if cell.Present {
				fmt.Fprintf(&b, "%s: %s", col, cell.Value)
			} else {
				fmt.Fprintf(&b, "%s: <missing>", col)
			}
		}
		b.WriteString("}")
		lines = append(lines, b.String())
	}
	return tabular.WriteLines(path, lines)
}
