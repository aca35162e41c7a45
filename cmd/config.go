package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/assayloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set AssayLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := effectiveConfig()
		fmt.Printf("input_dir: %s\n", c.InputDir)
		fmt.Printf("source_pattern: %s\n", c.SourcePattern)
		fmt.Printf("reference_file: %s\n", c.ReferenceFile)
		fmt.Printf("output_dir: %s\n", c.OutputDir)
		fmt.Printf("relationship_file: %s\n", c.RelationshipFile)
		fmt.Printf("compound_gene_file: %s\n", c.CompoundGeneFile)
		fmt.Printf("index_dump_file: %s\n", c.IndexDumpFile)
		fmt.Printf("columns_dump_file: %s\n", c.ColumnsDumpFile)
		fmt.Printf("header_workers: %d\n", c.HeaderWorkers)
		fmt.Printf("file_workers: %d\n", c.FileWorkers)
		fmt.Printf("chunk_rows: %d\n", c.ChunkRows)
		fmt.Printf("ref_chunk_rows: %d\n", c.RefChunkRows)
		fmt.Printf("ref_workers: %d\n", c.RefWorkers)
		fmt.Printf("progress_every: %d\n", c.ProgressEvery)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "input_dir":
			cfg.InputDir = val
		case "source_pattern":
			cfg.SourcePattern = val
		case "reference_file":
			cfg.ReferenceFile = val
		case "output_dir":
			cfg.OutputDir = val
		case "relationship_file":
			cfg.RelationshipFile = val
		case "compound_gene_file":
			cfg.CompoundGeneFile = val
		case "index_dump_file":
			cfg.IndexDumpFile = val
		case "columns_dump_file":
			cfg.ColumnsDumpFile = val
		case "header_workers":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.HeaderWorkers = i
		case "file_workers":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.FileWorkers = i
		case "chunk_rows":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.ChunkRows = i
		case "ref_chunk_rows":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.RefChunkRows = i
		case "ref_workers":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.RefWorkers = i
		case "progress_every":
			i, err := parsePositiveInt(key, val)
			if err != nil {
				return err
			}
			cfg.ProgressEvery = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func parsePositiveInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %s (want a positive integer)", key, val)
	}
	return i, nil
}
