// Package pipeline runs the ingestion-merge-classify pass: it fans
// PartitionTransformer work out over every source file's chunks and
// funnels surviving rows into the two output artifacts.
package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/assayloom-cli/internal/classify"
	"github.com/KaramelBytes/assayloom-cli/internal/refindex"
	"github.com/KaramelBytes/assayloom-cli/internal/tabular"
)

// Transformer applies the fixed per-chunk transformation sequence. It
// holds only read-only state, so one Transformer serves all workers.
type Transformer struct {
	cols []string // canonical schema plus trailing activity column
	ref  *refindex.Index
	log  *zap.Logger
}

// NewTransformer builds a transformer for the given canonical schema.
// The activity column is appended here; callers pass the schema as
// discovered.
func NewTransformer(canonical []string, ref *refindex.Index, log *zap.Logger) *Transformer {
	cols := append(append([]string(nil), canonical...), "activity")
	return &Transformer{cols: cols, ref: ref, log: log}
}

// Columns returns the column layout of transformed chunks: the canonical
// schema with activity last.
func (t *Transformer) Columns() []string {
	return append([]string(nil), t.cols...)
}

// Apply runs the transformation steps on one source chunk and returns
// the surviving rows aligned to Columns(). A nil chunk means everything
// was filtered out. The step order is strict; later steps read what
// earlier ones wrote.
func (t *Transformer) Apply(source string, chunk *tabular.Chunk) (*tabular.Chunk, error) {
	// phenotype columns native to this source, before reindexing
	sourcePhenotypes := phenotypeColumns(chunk.Cols)

	cidCol := chunk.Col("cid")
	dropped := chunk.Filter(func(row []tabular.Cell) bool {
		return cidCol >= 0 && row[cidCol].Present
	})

	chunk.DedupCols()
	out := chunk.Reindex(t.cols)

	aidIdx, cidIdx := out.Col("aid"), out.Col("cid")
	if aidIdx < 0 || cidIdx < 0 {
		return nil, fmt.Errorf("canonical schema lacks aid/cid columns")
	}
	dropped += out.Filter(func(row []tabular.Cell) bool {
		_, okA := tabular.ParseInt(row[aidIdx])
		_, okC := tabular.ParseInt(row[cidIdx])
		return okA && okC
	})
	if out.Len() == 0 {
		t.log.Debug("chunk empty after filtering",
			zap.String("source", source), zap.Int("dropped", dropped))
		return nil, nil
	}

	t.imputeMeasuredActivity(out)
	misses := t.augment(out)
	t.propagatePhenotype(out, sourcePhenotypes)
	t.deriveURL(out)

	dropped += out.Filter(func(row []tabular.Cell) bool {
		aid, _ := tabular.ParseInt(row[aidIdx])
		cid, _ := tabular.ParseInt(row[cidIdx])
		return aid != 1 || cid != 1 // sentinel placeholder row
	})

	t.classifyRows(out)

	t.log.Debug("chunk transformed",
		zap.String("source", source),
		zap.Int("rows", out.Len()),
		zap.Int("dropped", dropped),
		zap.Int("lookup_misses", misses))
	if out.Len() == 0 {
		return nil, nil
	}
	return out, nil
}

// imputeMeasuredActivity sets measured_activity to the most frequent
// non-missing value across the row's phenotype-prefixed columns; ties
// resolve to the lexically smallest value, and a row with no phenotype
// values keeps measured_activity missing.
func (t *Transformer) imputeMeasuredActivity(out *tabular.Chunk) {
	cols := phenotypeColumns(out.Cols)
	for i := range out.Rows {
		counts := make(map[string]int)
		for _, col := range cols {
			if cell := out.Get(i, col); cell.Present {
				counts[cell.Value]++
			}
		}
		if len(counts) == 0 {
			continue
		}
		values := make([]string, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		sort.Strings(values)
		mode := values[0]
		for _, v := range values[1:] {
			if counts[v] > counts[mode] {
				mode = v
			}
		}
		out.Set(i, "measured_activity", tabular.Cell{Value: mode, Present: true})
	}
}

// augment overlays reference fields onto each row whose key is indexed;
// reference values win on overlapping columns. Misses are warned and the
// row proceeds unaugmented.
func (t *Transformer) augment(out *tabular.Chunk) int {
	misses := 0
	for i := range out.Rows {
		aid, _ := tabular.ParseInt(out.Get(i, "aid"))
		cid, _ := tabular.ParseInt(out.Get(i, "cid"))
		outcome := out.Get(i, "activity_outcome").Value
		rec, ok := t.ref.Lookup(aid, cid, outcome)
		if !ok {
			misses++
			t.log.Warn("reference lookup miss",
				zap.Int("aid", aid), zap.Int("cid", cid), zap.String("outcome", outcome))
			continue
		}
		for col, cell := range rec {
			out.Set(i, col, cell)
		}
	}
	return misses
}

// propagatePhenotype fills the phenotype column group-wide. It runs only
// when the source file carried a phenotype column and every row has a
// non-missing activity_outcome; within each (activity_outcome,
// assay_name) group the first non-missing phenotype in row order is
// assumed to apply to the whole group.
func (t *Transformer) propagatePhenotype(out *tabular.Chunk, sourcePhenotypes []string) {
	if len(sourcePhenotypes) == 0 || out.Col("phenotype") < 0 {
		return
	}
	for i := range out.Rows {
		if !out.Get(i, "activity_outcome").Present {
			return
		}
	}
	type groupKey struct{ outcome, assay string }
	firsts := make(map[groupKey]tabular.Cell)
	order := make([]groupKey, 0)
	members := make(map[groupKey][]int)
	for i := range out.Rows {
		assay := out.Get(i, "assay_name")
		if !assay.Present {
			continue // no group without a full key
		}
		k := groupKey{out.Get(i, "activity_outcome").Value, assay.Value}
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
		if cell := out.Get(i, "phenotype"); cell.Present {
			if _, ok := firsts[k]; !ok {
				firsts[k] = cell
			}
		}
	}
	for _, k := range order {
		cell, ok := firsts[k]
		if !ok {
			continue
		}
		for _, i := range members[k] {
			out.Set(i, "phenotype", cell)
		}
	}
}

// deriveURL fills activity_url for rows carrying an sid.
func (t *Transformer) deriveURL(out *tabular.Chunk) {
	for i := range out.Rows {
		sid := out.Get(i, "sid")
		if !sid.Present {
			continue
		}
		aid, _ := tabular.ParseInt(out.Get(i, "aid"))
		url := fmt.Sprintf("https://pubchem.ncbi.nlm.nih.gov/bioassay/%d#sid=%s",
			aid, sidString(sid))
		out.Set(i, "activity_url", tabular.Cell{Value: url, Present: true})
	}
}

func sidString(sid tabular.Cell) string {
	if n, ok := tabular.ParseInt(sid); ok {
		return strconv.Itoa(n)
	}
	return sid.Value
}

func (t *Transformer) classifyRows(out *tabular.Chunk) {
	for i := range out.Rows {
		aid, _ := tabular.ParseInt(out.Get(i, "aid"))
		label, ok := classify.Label(classify.Fields{
			Outcome:      out.Get(i, "activity_outcome").Value,
			AssayName:    out.Get(i, "assay_name").Value,
			ActivityName: out.Get(i, "activity_name").Value,
			Direction:    out.Get(i, "activity_direction").Value,
			AID:          aid,
		})
		if ok {
			out.Set(i, "activity", tabular.Cell{Value: label, Present: true})
		}
	}
}

func phenotypeColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		if strings.HasPrefix(c, "phenotype") {
			out = append(out, c)
		}
	}
	return out
}
