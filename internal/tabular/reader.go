package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ChunkReader streams a comma-delimited file as fixed-size chunks of rows
// under one normalized header.
type ChunkReader struct {
	f      *os.File
	r      *csv.Reader
	header []string
	size   int
}

// OpenChunked opens a CSV file and consumes its header row. chunkRows
// bounds the number of data rows per chunk.
func OpenChunked(path string, chunkRows int) (*ChunkReader, error) {
	if chunkRows <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	raw, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	return &ChunkReader{f: f, r: r, header: NormalizeHeader(raw), size: chunkRows}, nil
}

// Header returns the normalized column names of the file.
func (cr *ChunkReader) Header() []string { return cr.header }

// Next returns the next chunk of rows, or io.EOF when the file is
// exhausted. Rows shorter than the header are padded with missing cells;
// surplus fields are dropped.
func (cr *ChunkReader) Next() (*Chunk, error) {
	chunk := NewChunk(cr.header)
	for len(chunk.Rows) < cr.size {
		rec, err := cr.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make([]Cell, len(cr.header))
		for i := range cr.header {
			if i < len(rec) {
				row[i] = NewCell(rec[i])
			}
		}
		chunk.Rows = append(chunk.Rows, row)
	}
	if len(chunk.Rows) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

// Close releases the underlying file.
func (cr *ChunkReader) Close() error { return cr.f.Close() }

// ReadHeader reads only the header row of a CSV file, normalized. Used by
// schema discovery so the file body is never pulled in.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	raw, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return NormalizeHeader(raw), nil
}
