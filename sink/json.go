package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

// JSONSink writes one JSON object per line.
type JSONSink struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONSink creates a JSONSink on w.
func NewJSONSink(w io.Writer) *JSONSink {
	bw := bufio.NewWriter(w)
	return &JSONSink{w: bw, enc: json.NewEncoder(bw)}
}

// Write encodes the record and flushes the line, so a consumer reading the
// stream sees each page as soon as it is emitted.
func (s *JSONSink) Write(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.w.Flush()
}

func (s *JSONSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
