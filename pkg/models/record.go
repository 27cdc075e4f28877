// Package models defines the transient row and batch types that flow from
// producers through the columnar writer.
package models

import (
	"context"
	"io"
)

// Row is one source record keyed by column name. A missing key and a nil
// value both mean null.
type Row = map[string]interface{}

// Batch is a bounded, ordered slice of rows handled as one unit.
type Batch = []Row

// BatchSource is a pull-based, single-pass sequence of batches. Next
// returns io.EOF once exhausted and keeps returning io.EOF afterwards.
type BatchSource interface {
	Next(ctx context.Context) (Batch, error)
}

// SliceSource serves pre-built batches in order. It backs in-memory
// producers such as the stream buffer flush.
type SliceSource struct {
	batches []Batch
	pos     int
}

// NewSliceSource returns a BatchSource over batches
func NewSliceSource(batches ...Batch) *SliceSource {
	return &SliceSource{batches: batches}
}

// Next implements BatchSource
func (s *SliceSource) Next(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

// Project returns a copy of row restricted to columns; absent keys map to nil.
func Project(row Row, columns []string) Row {
	out := make(Row, len(columns))
	for _, c := range columns {
		out[c] = row[c]
	}
	return out
}
