package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/assayloom-cli/internal/refindex"
	"github.com/KaramelBytes/assayloom-cli/internal/schema"
)

var (
	schemaInput     string
	schemaPattern   string
	schemaReference string
	schemaWorkers   int
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Discover and print the canonical column set without processing",
	Long: `Runs schema discovery only: reads the header of every source file plus
the reference table's columns and prints the resulting canonical column
list. Useful for diagnosing schema drift across source files before a
full run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		f := cmd.Flags()
		if f.Changed("input") {
			c.InputDir = schemaInput
		}
		if f.Changed("pattern") {
			c.SourcePattern = schemaPattern
		}
		if f.Changed("reference") {
			c.ReferenceFile = schemaReference
		}
		if f.Changed("header-workers") {
			c.HeaderWorkers = schemaWorkers
		}

		files, err := discoverSources(c)
		if err != nil {
			return err
		}
		ref, err := refindex.Build(cmd.Context(), c.ReferenceFile, refindex.Options{
			ChunkRows: c.RefChunkRows,
			Workers:   c.RefWorkers,
		}, logger)
		if err != nil {
			return err
		}
		canonical := schema.Discover(cmd.Context(), files, ref.Columns(), c.HeaderWorkers, logger)
		for _, col := range canonical {
			fmt.Println(col)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaInput, "input", "i", "", "directory containing source files")
	schemaCmd.Flags().StringVar(&schemaPattern, "pattern", "", "source file glob pattern (default AID_*.csv)")
	schemaCmd.Flags().StringVarP(&schemaReference, "reference", "r", "", "master reference table path")
	schemaCmd.Flags().IntVar(&schemaWorkers, "header-workers", 0, "max concurrent header reads")
}
