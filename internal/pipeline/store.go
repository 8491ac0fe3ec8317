package pipeline

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"schema_spider/internal/item"
	"schema_spider/internal/models"
	"schema_spider/internal/urlqueue"
)

type ItemStore interface {
	SaveItem(ctx context.Context, doc *models.ScrapedItem) error
}

// StoreStage saves items that reached it. Items are keyed by the
// normalized value of their URL field, or by content hash when they have
// none.
type StoreStage struct {
	store     ItemStore
	urlField  string
	urlFields map[string]string
	now       func() time.Time
}

func NewStoreStage(store ItemStore, urlField string) *StoreStage {
	return &StoreStage{store: store, urlField: urlField, urlFields: make(map[string]string), now: time.Now}
}

// WithURLField overrides the URL field for one item type.
func (s *StoreStage) WithURLField(itemType, field string) *StoreStage {
	s.urlFields[itemType] = field
	return s
}

func (s *StoreStage) urlFieldFor(itemType string) string {
	if field, ok := s.urlFields[itemType]; ok {
		return field
	}
	return s.urlField
}

func (s *StoreStage) ProcessItem(ctx context.Context, v any) (any, error) {
	it, ok := v.(*item.Item)
	if !ok {
		return v, nil
	}
	doc, err := ToScrapedItem(it, s.urlFieldFor(it.Type().Name()), s.now())
	if err != nil {
		return nil, err
	}
	doc.Source = SourceFromContext(ctx)
	if err := s.store.SaveItem(ctx, doc); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return it, nil
}

// ToScrapedItem builds the stored form of it.
func ToScrapedItem(it *item.Item, urlField string, now time.Time) (*models.ScrapedItem, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	hash := urlqueue.ComputeContentHash(string(data))

	doc := &models.ScrapedItem{
		ItemType:     it.Type().Name(),
		ContentHash:  hash,
		Fields:       it.Map(),
		FirstScraped: now.Unix(),
		LastScraped:  now.Unix(),
	}
	if v, ok := it.Lookup(urlField); ok {
		if u, _ := v.(string); u != "" {
			doc.URL = u
			doc.NormalizedURL = urlqueue.NormalizeURL(u)
		}
	}
	if doc.NormalizedURL == "" {
		doc.NormalizedURL = "hash:" + hash
	}
	return doc, nil
}
