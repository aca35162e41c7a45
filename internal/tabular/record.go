// Package tabular provides the CSV primitives shared by the pipeline:
// normalized headers, chunked record reading, and serialized append sinks.
// Cells carry an explicit presence flag so "missing" is never conflated
// with an empty-but-real value downstream.
package tabular

import (
	"strconv"
	"strings"
)

// Cell is one value in a row. Present is false for cells that were empty
// in the source or were introduced by reindexing against a wider schema.
type Cell struct {
	Value   string
	Present bool
}

// Missing returns the explicit missing cell.
func Missing() Cell { return Cell{} }

// NewCell builds a cell from a raw CSV field. Empty fields are missing.
func NewCell(raw string) Cell {
	if strings.TrimSpace(raw) == "" {
		return Cell{}
	}
	return Cell{Value: raw, Present: true}
}

// NormalizeName canonicalizes one raw column name: trimmed, lowercased,
// inner whitespace replaced with underscores.
func NormalizeName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(name, " ", "_")
}

// NormalizeHeader canonicalizes every column name in a header row.
func NormalizeHeader(raw []string) []string {
	out := make([]string, len(raw))
	for i, c := range raw {
		out[i] = NormalizeName(c)
	}
	return out
}

// ParseInt parses a cell as an integer, tolerating the float renderings
// some upstream exporters produce ("100.0" parses as 100).
func ParseInt(c Cell) (int, bool) {
	if !c.Present {
		return 0, false
	}
	s := strings.TrimSpace(c.Value)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}

// Chunk is a block of rows sharing one column layout. Rows are ragged-safe:
// every row has exactly len(Cols) cells.
type Chunk struct {
	Cols []string
	Rows [][]Cell

	index map[string]int
}

// NewChunk allocates an empty chunk for the given columns.
func NewChunk(cols []string) *Chunk {
	c := &Chunk{Cols: cols}
	c.reindexCols()
	return c
}

func (c *Chunk) reindexCols() {
	c.index = make(map[string]int, len(c.Cols))
	for i, name := range c.Cols {
		// first occurrence wins for duplicated names
		if _, ok := c.index[name]; !ok {
			c.index[name] = i
		}
	}
}

// Col returns the position of a column, or -1 if absent.
func (c *Chunk) Col(name string) int {
	if c.index == nil {
		c.reindexCols()
	}
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the named cell of row i, missing if the column is absent.
func (c *Chunk) Get(i int, name string) Cell {
	if j := c.Col(name); j >= 0 {
		return c.Rows[i][j]
	}
	return Missing()
}

// Set assigns the named cell of row i; it is a no-op for absent columns.
func (c *Chunk) Set(i int, name string, cell Cell) {
	if j := c.Col(name); j >= 0 {
		c.Rows[i][j] = cell
	}
}

// Len returns the number of rows.
func (c *Chunk) Len() int { return len(c.Rows) }

// DedupCols removes duplicate column names keeping the first occurrence.
// Guards against malformed source headers.
func (c *Chunk) DedupCols() {
	seen := make(map[string]bool, len(c.Cols))
	keep := make([]int, 0, len(c.Cols))
	for i, name := range c.Cols {
		if !seen[name] {
			seen[name] = true
			keep = append(keep, i)
		}
	}
	if len(keep) == len(c.Cols) {
		return
	}
	cols := make([]string, len(keep))
	for k, i := range keep {
		cols[k] = c.Cols[i]
	}
	for r, row := range c.Rows {
		out := make([]Cell, len(keep))
		for k, i := range keep {
			out[k] = row[i]
		}
		c.Rows[r] = out
	}
	c.Cols = cols
	c.reindexCols()
}

// Reindex returns a copy of the chunk aligned to the target columns.
// Columns absent from the source become explicit missing cells; source
// columns outside the target are discarded.
func (c *Chunk) Reindex(cols []string) *Chunk {
	out := NewChunk(cols)
	src := make([]int, len(cols))
	for i, name := range cols {
		src[i] = c.Col(name)
	}
	out.Rows = make([][]Cell, len(c.Rows))
	for r, row := range c.Rows {
		cells := make([]Cell, len(cols))
		for i, j := range src {
			if j >= 0 {
				cells[i] = row[j]
			}
		}
		out.Rows[r] = cells
	}
	return out
}

// Filter keeps only the rows for which keep returns true.
func (c *Chunk) Filter(keep func(row []Cell) bool) int {
	out := c.Rows[:0]
	dropped := 0
	for _, row := range c.Rows {
		if keep(row) {
			out = append(out, row)
		} else {
			dropped++
		}
	}
	c.Rows = out
	return dropped
}
