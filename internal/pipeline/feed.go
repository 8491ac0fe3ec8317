package pipeline

import (
	"bufio"
	"context"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

// FeedExporter writes every value that reaches it as one JSON line.
type FeedExporter struct {
	mu    sync.Mutex
	w     *bufio.Writer
	count int
}

func NewFeedExporter(w io.Writer) *FeedExporter {
	return &FeedExporter{w: bufio.NewWriter(w)}
}

func (f *FeedExporter) ProcessItem(_ context.Context, v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.w.Write(data); err != nil {
		return nil, err
	}
	if err := f.w.WriteByte('\n'); err != nil {
		return nil, err
	}
	f.count++
	return v, nil
}

// Count returns the number of exported values.
func (f *FeedExporter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *FeedExporter) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Flush()
}
