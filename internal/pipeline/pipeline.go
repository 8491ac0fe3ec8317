package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"schema_spider/internal/item"
	"schema_spider/internal/models"
)

const (
	StatItemScraped       = "item_scraped_count"
	StatItemDropped       = "item_dropped_count"
	StatItemDroppedReason = "item_dropped_reasons_count/DropItem"
	StatItemError         = "item_error_count"
)

// Stage processes one scraped value. Returning a *DropItem error discards
// the value; any other error is a failure of the stage itself.
type Stage interface {
	ProcessItem(ctx context.Context, v any) (any, error)
}

type StageFunc func(ctx context.Context, v any) (any, error)

func (f StageFunc) ProcessItem(ctx context.Context, v any) (any, error) {
	return f(ctx, v)
}

// DropItem is the error a stage returns to discard a value.
type DropItem struct {
	Reason string
}

func (e *DropItem) Error() string {
	return e.Reason
}

func Drop(format string, args ...any) error {
	return &DropItem{Reason: fmt.Sprintf(format, args...)}
}

// IsDropped reports whether err discards the value.
func IsDropped(err error) bool {
	var drop *DropItem
	return errors.As(err, &drop)
}

// Stats is the counter sink used by the pipeline and its stages.
type Stats interface {
	IncValue(key string, count int64)
}

type DropStore interface {
	SaveDroppedItem(ctx context.Context, doc *models.DroppedItem) error
}

// Pipeline runs every scraped value through its stages in order.
type Pipeline struct {
	stages    []Stage
	stats     Stats
	dropStore DropStore
}

func New(stats Stats, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, stats: stats}
}

// WithDropStore records every dropped item in store.
func (p *Pipeline) WithDropStore(store DropStore) *Pipeline {
	p.dropStore = store
	return p
}

// Process hands v to each stage in turn. A dropped value stops there and
// is reported with a *DropItem error.
func (p *Pipeline) Process(ctx context.Context, v any) (any, error) {
	cur := v
	for _, stage := range p.stages {
		out, err := stage.ProcessItem(ctx, cur)
		if err != nil {
			var drop *DropItem
			if errors.As(err, &drop) {
				p.dropped(ctx, cur, drop)
				return nil, err
			}
			p.inc(StatItemError)
			log.Printf("Error processing %v: %v", cur, err)
			return nil, err
		}
		cur = out
	}
	p.inc(StatItemScraped)
	return cur, nil
}

func (p *Pipeline) dropped(ctx context.Context, v any, drop *DropItem) {
	p.inc(StatItemDropped)
	p.inc(StatItemDroppedReason)
	log.Printf("Dropped: %s\n%v", drop.Reason, v)

	if p.dropStore == nil {
		return
	}
	doc := &models.DroppedItem{
		Source:    SourceFromContext(ctx),
		Reason:    drop.Reason,
		Timestamp: time.Now().Unix(),
	}
	if it, ok := v.(*item.Item); ok {
		doc.ItemType = it.Type().Name()
		doc.Fields = it.Map()
	}
	if err := p.dropStore.SaveDroppedItem(ctx, doc); err != nil {
		log.Printf("Error saving dropped item: %v", err)
	}
}

func (p *Pipeline) inc(key string) {
	if p.stats != nil {
		p.stats.IncValue(key, 1)
	}
}

type sourceKey struct{}

// WithSource tags ctx with the name of the source being crawled.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func SourceFromContext(ctx context.Context) string {
	source, _ := ctx.Value(sourceKey{}).(string)
	return source
}
