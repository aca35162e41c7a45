package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/assayloom-cli/internal/tabular"
)

// CompoundGeneColumns is the fixed projection written to the second
// artifact.
var CompoundGeneColumns = []string{"cid", "target_geneid", "activity", "aid"}

// Options tunes the file fan-out.
type Options struct {
	FileWorkers   int // max files processed concurrently
	ChunkRows     int // rows per transformation chunk
	ProgressEvery int // log progress every Nth file
}

// DefaultOptions returns the fan-out settings used by the CLI defaults.
func DefaultOptions() Options {
	return Options{FileWorkers: 8, ChunkRows: 1000, ProgressEvery: 100}
}

// Summary reports what one run produced.
type Summary struct {
	Files            int
	FilesFailed      int
	RelationshipRows int64
	CompoundGeneRows int64
	Elapsed          time.Duration
}

// Pipeline coordinates parallel chunk transformation across all source
// files and serializes results into the two artifacts. The transformer
// and its reference index are read-only; the sinks are the only shared
// mutable state and each is owned by a single writer goroutine.
type Pipeline struct {
	tr  *Transformer
	opt Options
	log *zap.Logger
}

// New builds a pipeline around a transformer.
func New(tr *Transformer, opt Options, log *zap.Logger) *Pipeline {
	def := DefaultOptions()
	if opt.FileWorkers <= 0 {
		opt.FileWorkers = def.FileWorkers
	}
	if opt.ChunkRows <= 0 {
		opt.ChunkRows = def.ChunkRows
	}
	if opt.ProgressEvery <= 0 {
		opt.ProgressEvery = def.ProgressEvery
	}
	return &Pipeline{tr: tr, opt: opt, log: log}
}

// Run processes every source file and writes the relationship and
// compound-gene artifacts. Both files are recreated with their header
// before any task starts. A file or chunk that fails is logged and
// skipped; Run fails only when an artifact cannot be created or a write
// is lost.
func (p *Pipeline) Run(ctx context.Context, files []string, relPath, cgPath string) (Summary, error) {
	start := time.Now()

	relSink, err := tabular.NewAppendSink(relPath, p.tr.Columns())
	if err != nil {
		return Summary{}, fmt.Errorf("relationship artifact: %w", err)
	}
	cgSink, err := tabular.NewAppendSink(cgPath, CompoundGeneColumns)
	if err != nil {
		_ = relSink.Close()
		return Summary{}, fmt.Errorf("compound-gene artifact: %w", err)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.FileWorkers)
	for i, path := range files {
		if i%p.opt.ProgressEvery == 0 {
			p.log.Info("processing source file",
				zap.Int("n", i+1), zap.Int("total", len(files)), zap.String("path", path))
		}
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.processFile(path, relSink, cgSink); err != nil {
				// per-file failures never abort the run
				p.log.Error("source file skipped", zap.String("path", path), zap.Error(err))
				failed.Add(1)
			}
			return nil
		})
	}
	runErr := g.Wait()

	if err := relSink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := cgSink.Close(); err != nil && runErr == nil {
		runErr = err
	}

	sum := Summary{
		Files:            len(files),
		FilesFailed:      int(failed.Load()),
		RelationshipRows: relSink.Rows(),
		CompoundGeneRows: cgSink.Rows(),
		Elapsed:          time.Since(start),
	}
	p.log.Info("run complete",
		zap.Int("files", sum.Files),
		zap.Int("files_failed", sum.FilesFailed),
		zap.Int64("relationship_rows", sum.RelationshipRows),
		zap.Int64("compound_gene_rows", sum.CompoundGeneRows),
		zap.Duration("elapsed", sum.Elapsed))
	return sum, runErr
}

// processFile streams one source file chunk by chunk. A chunk that fails
// to transform is logged and discarded; sibling chunks are unaffected.
func (p *Pipeline) processFile(path string, relSink, cgSink *tabular.AppendSink) error {
	cr, err := tabular.OpenChunked(path, p.opt.ChunkRows)
	if err != nil {
		return err
	}
	defer cr.Close()

	for chunkN := 0; ; chunkN++ {
		chunk, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chunk %d: %w", chunkN, err)
		}
		out, err := p.tr.Apply(path, chunk)
		if err != nil {
			p.log.Error("chunk skipped",
				zap.String("path", path), zap.Int("chunk", chunkN), zap.Error(err))
			continue
		}
		if out == nil {
			continue
		}
		relSink.Append(tabular.Render(out))
		cgSink.Append(tabular.RenderProjection(out, CompoundGeneColumns))
	}
}
