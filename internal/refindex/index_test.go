package refindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func writeReference(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.csv")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildIndexesByCompositeKey(t *testing.T) {
	path := writeReference(t,
		"AID,CID,Activity Outcome,Target GeneID\n"+
			"100,200,Active,1576\n"+
			"100,200,Inactive,1576\n"+
			"101,201,Active,\n")
	ix, err := Build(context.Background(), path, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 3 {
		t.Fatalf("len = %d, want 3", ix.Len())
	}
	rec, ok := ix.Lookup(100, 200, "Active")
	if !ok {
		t.Fatal("expected hit for (100, 200, Active)")
	}
	if got := rec["target_geneid"]; !got.Present || got.Value != "1576" {
		t.Fatalf("target_geneid = %+v", got)
	}
	rec, ok = ix.Lookup(101, 201, "Active")
	if !ok {
		t.Fatal("expected hit for (101, 201, Active)")
	}
	if rec["target_geneid"].Present {
		t.Fatal("empty reference field should stay missing")
	}
	if _, ok := ix.Lookup(999, 999, "Active"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestBuildDropsRowsMissingKeys(t *testing.T) {
	path := writeReference(t,
		"aid,cid,activity_outcome\n"+
			",200,Active\n"+
			"100,,Active\n"+
			"abc,200,Active\n"+
			"100,200,Active\n")
	ix, err := Build(context.Background(), path, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 1 {
		t.Fatalf("len = %d, want 1", ix.Len())
	}
}

// Duplicate keys must resolve to the last occurrence in file order, even
// when the file is split into many parallel chunks.
func TestBuildLastWriterWins(t *testing.T) {
	var b strings.Builder
	b.WriteString("aid,cid,activity_outcome,note\n")
	for i := 0; i < 50; i++ {
		b.WriteString("100,200,Active,early\n")
	}
	b.WriteString("100,200,Active,final\n")
	path := writeReference(t, b.String())

	// one row per chunk forces maximal chunk parallelism
	ix, err := Build(context.Background(), path, Options{ChunkRows: 1, Workers: 8}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := ix.Lookup(100, 200, "Active")
	if !ok {
		t.Fatal("expected hit")
	}
	if got := rec["note"].Value; got != "final" {
		t.Fatalf("note = %q, want last occurrence in file order", got)
	}
}

func TestBuildFloatKeyRenderings(t *testing.T) {
	path := writeReference(t, "aid,cid,activity_outcome\n100.0,200.0,Active\n")
	ix, err := Build(context.Background(), path, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ix.Lookup(100, 200, "Active"); !ok {
		t.Fatal("float-rendered keys must index as integers")
	}
}

func TestBuildMissingFileIsFatal(t *testing.T) {
	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "nope.csv"),
		DefaultOptions(), zap.NewNop())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDumpSortedLines(t *testing.T) {
	path := writeReference(t,
		"aid,cid,activity_outcome\n"+
			"200,1,Active\n"+
			"100,1,Active\n")
	ix, err := Build(context.Background(), path, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	dump := filepath.Join(t.TempDir(), "dump.txt")
	if err := ix.Dump(dump); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(dump)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "(100, 1, Active)") || !strings.HasPrefix(lines[1], "(200, 1, Active)") {
		t.Fatalf("dump not sorted by key:\n%s", string(b))
	}
}

func TestColumnsSorted(t *testing.T) {
	path := writeReference(t, "cid,aid,activity_outcome\n1,2,Active\n")
	ix, err := Build(context.Background(), path, DefaultOptions(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	cols := ix.Columns()
	want := []string{"activity_outcome", "aid", "cid"}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns = %v, want %v", cols, want)
		}
	}
}
