package schema

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscoverUnionsHeadersAndReference(t *testing.T) {
	dir := t.TempDir()
	f1 := writeFile(t, dir, "AID_1.csv", "AID,CID,Assay Name\n")
	f2 := writeFile(t, dir, "AID_2.csv", "aid,cid,Phenotype\n")

	cols := Discover(context.Background(), []string{f2, f1},
		[]string{"activity_outcome", "aid"}, 4, zap.NewNop())

	want := []string{
		// f1 sorts before f2, so its header leads
		"aid", "cid", "assay_name", "phenotype",
		// reference-only columns follow
		"activity_outcome",
		// derived columns appended last
		"target_geneid", "measured_activity", "activity_url",
	}
	if !reflect.DeepEqual(cols, want) {
		t.Fatalf("cols = %v, want %v", cols, want)
	}
}

func TestDiscoverIdempotent(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "AID_10.csv", "aid,cid,sid\n"),
		writeFile(t, dir, "AID_11.csv", "aid,cid,activity_direction\n"),
	}
	ref := []string{"activity_name", "aid"}
	first := Discover(context.Background(), files, ref, 2, zap.NewNop())
	second := Discover(context.Background(), files, ref, 2, zap.NewNop())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("discovery not idempotent: %v vs %v", first, second)
	}
}

func TestDiscoverSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "AID_1.csv", "aid,cid\n")
	missing := filepath.Join(dir, "AID_9.csv") // never created

	cols := Discover(context.Background(), []string{good, missing}, nil, 2, zap.NewNop())
	for _, c := range cols {
		if c == "" {
			t.Fatal("empty column name leaked into schema")
		}
	}
	if cols[0] != "aid" || cols[1] != "cid" {
		t.Fatalf("cols = %v", cols)
	}
}

func TestDumpWritesOnePerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_columns.txt")
	if err := Dump(path, []string{"aid", "cid"}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "aid\ncid\n" {
		t.Fatalf("dump = %q", string(b))
	}
}
