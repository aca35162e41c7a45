package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "github.com/KaramelBytes/assayloom-cli/internal/config"
)

func TestCLI_ConfigSetPersists(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	t.Cleanup(func() { cfg = nil })

	runCmd(t, "config", "set", "file_workers", "4")
	runCmd(t, "config", "set", "output_dir", filepath.Join(home, "results"))

	// persisted to ~/.assayloom/config.yaml
	b, err := os.ReadFile(filepath.Join(home, ".assayloom", "config.yaml"))
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.Contains(string(b), "file_workers: 4") {
		t.Fatalf("saved config missing file_workers:\n%s", string(b))
	}

	// a fresh load round-trips the saved values
	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if c.FileWorkers != 4 {
		t.Fatalf("file_workers = %d, want 4", c.FileWorkers)
	}
	if c.OutputDir != filepath.Join(home, "results") {
		t.Fatalf("output_dir = %q", c.OutputDir)
	}
}

func TestCLI_ConfigSetRejectsBadInput(t *testing.T) {
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	defer os.Setenv("HOME", oldHome)
	os.Setenv("HOME", home)
	t.Cleanup(func() { cfg = nil })

	cases := [][]string{
		{"config", "set", "no_such_key", "x"},
		{"config", "set", "file_workers", "zero"},
		{"config", "set", "chunk_rows", "-5"},
	}
	for _, args := range cases {
		resetProcessFlags()
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err == nil {
			t.Fatalf("command %v should have failed", args)
		}
	}
}
