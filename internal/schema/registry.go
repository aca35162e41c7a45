// Package schema discovers the canonical column set: the union of every
// source file's normalized header with the reference table's columns,
// plus the columns the pipeline derives.
package schema

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/assayloom-cli/internal/tabular"
)

// DefaultHeaderWorkers bounds the concurrent header reads. Header reads
// are I/O-bound and independent, so a small pool is enough.
const DefaultHeaderWorkers = 10

// Derived lists the columns the transform adds to every row; they join
// the canonical set so emitted rows always share one column layout. The
// activity label itself is appended by the pipeline as the final column
// of the relationship artifact.
var Derived = []string{"target_geneid", "measured_activity", "activity_url"}

// Discover produces the canonical ordered column set. Source files are
// scanned in sorted order and only their header rows are read; a file
// whose header cannot be read is logged and excluded, never fatal.
// Reference-only columns are appended in sorted order, then any derived
// column not already present. The result is deterministic for an
// unchanged input set.
func Discover(ctx context.Context, files []string, refCols []string, workers int, log *zap.Logger) []string {
	if workers <= 0 {
		workers = DefaultHeaderWorkers
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	headers := make([][]string, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range sorted {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			header, err := tabular.ReadHeader(path)
			if err != nil {
				log.Warn("header unreadable, excluded from schema",
					zap.String("path", path), zap.Error(err))
				return nil
			}
			headers[i] = header
			return nil
		})
	}
	// workers only ever return ctx errors; discovery itself never fails
	_ = g.Wait()

	var canonical []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			canonical = append(canonical, name)
		}
	}
	for _, header := range headers {
		for _, name := range header {
			add(name)
		}
	}
	for _, name := range refCols {
		add(name)
	}
	for _, name := range Derived {
		add(name)
	}
	log.Info("canonical schema discovered",
		zap.Int("files", len(sorted)), zap.Int("columns", len(canonical)))
	return canonical
}

// Dump persists the discovered column list, one name per line.
func Dump(path string, cols []string) error {
	return tabular.WriteLines(path, cols)
}
