package pipeline_test

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/assayloom-cli/internal/pipeline"
	"github.com/KaramelBytes/assayloom-cli/internal/refindex"
	"github.com/KaramelBytes/assayloom-cli/internal/schema"
	"github.com/KaramelBytes/assayloom-cli/internal/tabular"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func column(header []string, name string) int {
	for i, c := range header {
		if c == name {
			return i
		}
	}
	return -1
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	log := zap.NewNop()

	refPath := writeCSV(t, dir, "AllDataConnected.csv",
		"AID,CID,Activity Outcome,Target GeneID\n"+
			"100,200,Active,1576\n"+
			"101,300,Active,1544\n")
	files := []string{
		writeCSV(t, dir, "AID_100.csv",
			"AID,CID,Activity Outcome,Assay Name,SID\n"+
				"100,200,Active,CYP3A4 inhibition assay,55\n"+
				"1,1,Active,placeholder,1\n"),
		writeCSV(t, dir, "AID_101.csv",
			"AID,CID,Activity Outcome,Assay Name,Activity Direction\n"+
				"101,300,Active,induction of CYP1A2,\n"+
				"101,301,Inactive,induction of CYP1A2,\n"),
	}

	ref, err := refindex.Build(ctx, refPath, refindex.DefaultOptions(), log)
	require.NoError(t, err)
	canonical := schema.Discover(ctx, files, ref.Columns(), 4, log)

	tr := pipeline.NewTransformer(canonical, ref, log)
	p := pipeline.New(tr, pipeline.Options{FileWorkers: 2, ChunkRows: 10}, log)

	relPath := filepath.Join(dir, "relationship.csv")
	cgPath := filepath.Join(dir, "compound_gene.csv")
	sum, err := p.Run(ctx, files, relPath, cgPath)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, 0, sum.FilesFailed)
	assert.EqualValues(t, 3, sum.RelationshipRows) // sentinel row dropped
	assert.EqualValues(t, 3, sum.CompoundGeneRows)

	rel := readCSV(t, relPath)
	require.Len(t, rel, 4)
	header := rel[0]
	assert.Equal(t, "activity", header[len(header)-1])

	aidIdx := column(header, "aid")
	actIdx := column(header, "activity")
	urlIdx := column(header, "activity_url")
	geneIdx := column(header, "target_geneid")
	require.NotEqual(t, -1, aidIdx)
	require.NotEqual(t, -1, actIdx)
	require.NotEqual(t, -1, urlIdx)
	require.NotEqual(t, -1, geneIdx)

	byAid := map[string][][]string{}
	for _, row := range rel[1:] {
		require.Len(t, row, len(header), "every row shares the canonical layout")
		byAid[row[aidIdx]] = append(byAid[row[aidIdx]], row)
		assert.NotEqual(t, "", row[aidIdx])
	}

	require.Len(t, byAid["100"], 1)
	row100 := byAid["100"][0]
	assert.Equal(t, "Inhibitor", row100[actIdx])
	assert.Equal(t, "https://pubchem.ncbi.nlm.nih.gov/bioassay/100#sid=55", row100[urlIdx])
	assert.Equal(t, "1576", row100[geneIdx], "augmented from the reference table")

	require.Len(t, byAid["101"], 2)
	for _, row := range byAid["101"] {
		switch row[column(header, "cid")] {
		case "300":
			assert.Equal(t, "Inducer", row[actIdx])
		case "301":
			assert.Equal(t, "Inactive", row[actIdx])
		default:
			t.Fatalf("unexpected cid in row %v", row)
		}
	}

	cg := readCSV(t, cgPath)
	require.Len(t, cg, 4)
	assert.Equal(t, pipeline.CompoundGeneColumns, cg[0])
	for _, row := range cg[1:] {
		require.Len(t, row, 4)
	}
}

func TestRunSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	log := zap.NewNop()

	refPath := writeCSV(t, dir, "reference.csv", "aid,cid,activity_outcome\n100,200,Active\n")
	good := writeCSV(t, dir, "AID_100.csv",
		"aid,cid,activity_outcome,assay_name\n100,200,Active,inhibition assay\n")
	missing := filepath.Join(dir, "AID_404.csv")

	ref, err := refindex.Build(ctx, refPath, refindex.DefaultOptions(), log)
	require.NoError(t, err)
	canonical := schema.Discover(ctx, []string{good, missing}, ref.Columns(), 2, log)

	p := pipeline.New(pipeline.NewTransformer(canonical, ref, log), pipeline.Options{}, log)
	sum, err := p.Run(ctx, []string{good, missing},
		filepath.Join(dir, "rel.csv"), filepath.Join(dir, "cg.csv"))
	require.NoError(t, err, "a broken file never aborts the run")
	assert.Equal(t, 1, sum.FilesFailed)
	assert.EqualValues(t, 1, sum.RelationshipRows)
}

func TestRunManyFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	log := zap.NewNop()

	refPath := writeCSV(t, dir, "reference.csv", "aid,cid,activity_outcome\n")
	const n = 20
	const rowsPerFile = 7
	var files []string
	for i := 0; i < n; i++ {
		content := "aid,cid,activity_outcome,assay_name\n"
		for r := 0; r < rowsPerFile; r++ {
			content += fmt.Sprintf("%d,%d,Active,inhibition assay\n", 1000+i, 2000+r)
		}
		files = append(files, writeCSV(t, dir, fmt.Sprintf("AID_%d.csv", 1000+i), content))
	}

	ref, err := refindex.Build(ctx, refPath, refindex.DefaultOptions(), log)
	require.NoError(t, err)
	canonical := schema.Discover(ctx, files, ref.Columns(), 4, log)

	p := pipeline.New(pipeline.NewTransformer(canonical, ref, log),
		pipeline.Options{FileWorkers: 8, ChunkRows: 3}, log)
	relPath := filepath.Join(dir, "rel.csv")
	sum, err := p.Run(ctx, files, relPath, filepath.Join(dir, "cg.csv"))
	require.NoError(t, err)
	assert.EqualValues(t, n*rowsPerFile, sum.RelationshipRows)

	rel := readCSV(t, relPath)
	require.Len(t, rel, 1+n*rowsPerFile, "one header plus every surviving row")
	width := len(rel[0])
	for _, row := range rel {
		require.Len(t, row, width, "no interleaved or torn lines")
	}
}

// Artifacts are recreated at the start of each run, not appended across runs.
func TestRunTruncatesPreviousArtifacts(t *testing.T) {
	dir := t.TempDir()
	relPath := filepath.Join(dir, "rel.csv")
	require.NoError(t, os.WriteFile(relPath, []byte("stale,content\n1,2\n3,4\n"), 0o644))

	s, err := tabular.NewAppendSink(relPath, []string{"aid", "cid"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	records := readCSV(t, relPath)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"aid", "cid"}, records[0])
}
