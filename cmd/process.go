package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/assayloom-cli/internal/config"
	"github.com/KaramelBytes/assayloom-cli/internal/pipeline"
	"github.com/KaramelBytes/assayloom-cli/internal/refindex"
	"github.com/KaramelBytes/assayloom-cli/internal/schema"
)

var (
	procInput         string
	procPattern       string
	procReference     string
	procOutput        string
	procFileWorkers   int
	procHeaderWorkers int
	procChunkRows     int
	procRefChunkRows  int
	procRefWorkers    int
	procProgressEvery int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full ingestion-merge-classify pipeline",
	Long: `Builds the reference index and canonical schema, then processes every
source file in parallel: reindexing rows, imputing phenotype values,
augmenting from the reference table, and classifying activity. The two
output artifacts are recreated at the start of each run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		applyProcessFlags(cmd, c)

		runID := uuid.NewString()
		log := logger.With(zap.String("run_id", runID))

		files, err := discoverSources(c)
		if err != nil {
			return err
		}
		log.Info("source files discovered",
			zap.Int("count", len(files)), zap.String("pattern", c.SourcePattern))

		if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		ref, err := refindex.Build(cmd.Context(), c.ReferenceFile, refindex.Options{
			ChunkRows: c.RefChunkRows,
			Workers:   c.RefWorkers,
		}, log)
		if err != nil {
			return err
		}
		if err := ref.Dump(c.IndexDumpPath()); err != nil {
			// auxiliary artifact only
			log.Warn("reference index dump failed", zap.Error(err))
		}

		canonical := schema.Discover(cmd.Context(), files, ref.Columns(), c.HeaderWorkers, log)
		if err := schema.Dump(c.ColumnsDumpPath(), canonical); err != nil {
			log.Warn("column list dump failed", zap.Error(err))
		}

		tr := pipeline.NewTransformer(canonical, ref, log)
		p := pipeline.New(tr, pipeline.Options{
			FileWorkers:   c.FileWorkers,
			ChunkRows:     c.ChunkRows,
			ProgressEvery: c.ProgressEvery,
		}, log)
		sum, err := p.Run(cmd.Context(), files, c.RelationshipPath(), c.CompoundGenePath())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Processed %d files (%d skipped): %d relationship rows, %d compound-gene rows in %s\n",
			sum.Files, sum.FilesFailed, sum.RelationshipRows, sum.CompoundGeneRows,
			sum.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&procInput, "input", "i", "", "directory containing source files")
	processCmd.Flags().StringVar(&procPattern, "pattern", "", "source file glob pattern (default AID_*.csv)")
	processCmd.Flags().StringVarP(&procReference, "reference", "r", "", "master reference table path")
	processCmd.Flags().StringVarP(&procOutput, "output", "o", "", "output directory for artifacts")
	processCmd.Flags().IntVar(&procFileWorkers, "file-workers", 0, "max files processed concurrently")
	processCmd.Flags().IntVar(&procHeaderWorkers, "header-workers", 0, "max concurrent header reads during schema discovery")
	processCmd.Flags().IntVar(&procChunkRows, "chunk-rows", 0, "rows per transformation chunk")
	processCmd.Flags().IntVar(&procRefChunkRows, "ref-chunk-rows", 0, "rows per reference index chunk")
	processCmd.Flags().IntVar(&procRefWorkers, "ref-workers", 0, "max concurrent reference index workers")
	processCmd.Flags().IntVar(&procProgressEvery, "progress-every", 0, "log progress every Nth file")
}

// effectiveConfig returns the loaded config, or defaults when no config
// could be loaded at startup.
func effectiveConfig() *cfgpkg.Global {
	if cfg != nil {
		out := *cfg
		return &out
	}
	c, err := cfgpkg.Load("")
	if err != nil {
		return &cfgpkg.Global{}
	}
	return c
}

func applyProcessFlags(cmd *cobra.Command, c *cfgpkg.Global) {
	f := cmd.Flags()
	if f.Changed("input") {
		c.InputDir = procInput
	}
	if f.Changed("pattern") {
		c.SourcePattern = procPattern
	}
	if f.Changed("reference") {
		c.ReferenceFile = procReference
	}
	if f.Changed("output") {
		c.OutputDir = procOutput
	}
	if f.Changed("file-workers") {
		c.FileWorkers = procFileWorkers
	}
	if f.Changed("header-workers") {
		c.HeaderWorkers = procHeaderWorkers
	}
	if f.Changed("chunk-rows") {
		c.ChunkRows = procChunkRows
	}
	if f.Changed("ref-chunk-rows") {
		c.RefChunkRows = procRefChunkRows
	}
	if f.Changed("ref-workers") {
		c.RefWorkers = procRefWorkers
	}
	if f.Changed("progress-every") {
		c.ProgressEvery = procProgressEvery
	}
}

// discoverSources globs the input dir for source files. No matches is
// fatal: the run has nothing to do.
func discoverSources(c *cfgpkg.Global) ([]string, error) {
	pattern := c.SourcePattern
	if pattern == "" {
		pattern = "AID_*.csv"
	}
	matches, err := filepath.Glob(filepath.Join(c.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob sources: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no source files matched %s in %s", pattern, c.InputDir)
	}
	sort.Strings(matches)
	return matches, nil
}
