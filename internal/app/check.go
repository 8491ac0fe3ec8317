package app

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"schema_spider/internal/item"
	"schema_spider/internal/pipeline"
	"schema_spider/internal/schema"
	"schema_spider/internal/stats"
)

type FeedResult struct {
	Valid   int
	Invalid int
	Stats   map[string]int64
}

// ValidateFeed runs every record of a JSON lines feed through the
// validation stage as an item of the named type. Records with fields the
// type does not support count as invalid.
func ValidateFeed(registry *item.Registry, typeName string, r io.Reader) (*FeedResult, error) {
	t, ok := registry.Get(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown item type %s", typeName)
	}

	st := stats.NewCollector()
	p := pipeline.New(st, pipeline.NewValidateStage(st))
	result := &FeedResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		doc, err := schema.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		it, err := item.New(t, doc)
		if err != nil {
			log.Printf("Line %d: %v", line, err)
			result.Invalid++
			continue
		}
		if _, err := p.Process(context.Background(), it); err != nil {
			result.Invalid++
			continue
		}
		result.Valid++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result.Stats = st.GetStats()
	return result, nil
}
