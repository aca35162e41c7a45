package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync/atomic"
)

// AppendSink serializes concurrent chunk appends into one CSV artifact.
// The file is truncated and given its header when the sink is created;
// after that a single consumer goroutine owns the file handle, so workers
// can hand over completed chunks without any coordination between them.
type AppendSink struct {
	path string
	ch   chan [][]string
	done chan struct{}
	rows atomic.Int64
	err  error
}

// NewAppendSink truncates path, writes the header row, and starts the
// writer goroutine.
func NewAppendSink(path string, cols []string) (*AppendSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	s := &AppendSink{
		path: path,
		ch:   make(chan [][]string, 16),
		done: make(chan struct{}),
	}
	go s.consume(f, w)
	return s, nil
}

func (s *AppendSink) consume(f *os.File, w *csv.Writer) {
	defer close(s.done)
	for rows := range s.ch {
		if s.err != nil {
			continue // drain after first failure
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				s.err = fmt.Errorf("append to %s: %w", s.path, err)
				break
			}
			s.rows.Add(1)
		}
		w.Flush()
		if err := w.Error(); s.err == nil && err != nil {
			s.err = fmt.Errorf("append to %s: %w", s.path, err)
		}
	}
	if err := f.Close(); s.err == nil && err != nil {
		s.err = fmt.Errorf("close %s: %w", s.path, err)
	}
}

// Append enqueues rendered rows for the writer goroutine. Safe for
// concurrent use; must not be called after Close.
func (s *AppendSink) Append(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	s.ch <- rows
}

// Close waits for all queued appends to land and reports the first write
// error, if any.
func (s *AppendSink) Close() error {
	close(s.ch)
	<-s.done
	return s.err
}

// Rows returns the number of data rows written so far.
func (s *AppendSink) Rows() int64 { return s.rows.Load() }

// Render flattens a chunk to raw CSV fields; missing cells become empty
// fields.
func Render(c *Chunk) [][]string {
	out := make([][]string, len(c.Rows))
	for i, row := range c.Rows {
		fields := make([]string, len(row))
		for j, cell := range row {
			if cell.Present {
				fields[j] = cell.Value
			}
		}
		out[i] = fields
	}
	return out
}

// RenderProjection flattens only the named columns of a chunk, in order.
func RenderProjection(c *Chunk, cols []string) [][]string {
	src := make([]int, len(cols))
	for i, name := range cols {
		src[i] = c.Col(name)
	}
	out := make([][]string, len(c.Rows))
	for i, row := range c.Rows {
		fields := make([]string, len(cols))
		for j, k := range src {
			if k >= 0 && row[k].Present {
				fields[j] = row[k].Value
			}
		}
		out[i] = fields
	}
	return out
}
