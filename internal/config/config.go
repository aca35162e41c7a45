package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	InputDir      string `mapstructure:"input_dir" yaml:"input_dir"`
	SourcePattern string `mapstructure:"source_pattern" yaml:"source_pattern"`
	ReferenceFile string `mapstructure:"reference_file" yaml:"reference_file"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`

	// Artifact file names, resolved under output_dir
	RelationshipFile string `mapstructure:"relationship_file" yaml:"relationship_file"`
	CompoundGeneFile string `mapstructure:"compound_gene_file" yaml:"compound_gene_file"`
	IndexDumpFile    string `mapstructure:"index_dump_file" yaml:"index_dump_file"`
	ColumnsDumpFile  string `mapstructure:"columns_dump_file" yaml:"columns_dump_file"`

	// Concurrency and chunking
	HeaderWorkers int `mapstructure:"header_workers" yaml:"header_workers"`
	FileWorkers   int `mapstructure:"file_workers" yaml:"file_workers"`
	ChunkRows     int `mapstructure:"chunk_rows" yaml:"chunk_rows"`
	RefChunkRows  int `mapstructure:"ref_chunk_rows" yaml:"ref_chunk_rows"`
	RefWorkers    int `mapstructure:"ref_workers" yaml:"ref_workers"`

	ProgressEvery int `mapstructure:"progress_every" yaml:"progress_every"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.assayloom/config.yaml, creating the directory
// if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".assayloom")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ASSAYLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input_dir", "Data/AID")
	v.SetDefault("source_pattern", "AID_*.csv")
	v.SetDefault("reference_file", "Data/AllDataConnected.csv")
	v.SetDefault("output_dir", "Data/Relationships")
	v.SetDefault("relationship_file", "Assay_Compound_Relationship.csv")
	v.SetDefault("compound_gene_file", "Compound_Gene_Relationship.csv")
	v.SetDefault("index_dump_file", "reference_index.txt")
	v.SetDefault("columns_dump_file", "all_columns.txt")
	v.SetDefault("header_workers", 10)
	v.SetDefault("file_workers", 8)
	v.SetDefault("chunk_rows", 1000)
	v.SetDefault("ref_chunk_rows", 20000)
	v.SetDefault("ref_workers", 8)
	v.SetDefault("progress_every", 100)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".assayloom")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// RelationshipPath resolves the relationship artifact path.
func (c *Global) RelationshipPath() string {
	return filepath.Join(c.OutputDir, c.RelationshipFile)
}

// CompoundGenePath resolves the compound-gene artifact path.
func (c *Global) CompoundGenePath() string {
	return filepath.Join(c.OutputDir, c.CompoundGeneFile)
}

// IndexDumpPath resolves the reference-index dump path.
func (c *Global) IndexDumpPath() string {
	return filepath.Join(c.OutputDir, c.IndexDumpFile)
}

// ColumnsDumpPath resolves the canonical-columns dump path.
func (c *Global) ColumnsDumpPath() string {
	return filepath.Join(c.OutputDir, c.ColumnsDumpFile)
}
