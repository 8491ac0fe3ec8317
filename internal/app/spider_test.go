package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema_spider/internal/config"
	"schema_spider/internal/item"
	"schema_spider/internal/models"
	"schema_spider/internal/pipeline"
	"schema_spider/internal/stats"
)

type memoryStorage struct {
	mu        sync.Mutex
	items     []*models.ScrapedItem
	dropped   []*models.DroppedItem
	snapshots []*models.StatsSnapshot
	closed    bool
}

func (m *memoryStorage) SaveItem(_ context.Context, doc *models.ScrapedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, doc)
	return nil
}

func (m *memoryStorage) SaveDroppedItem(_ context.Context, doc *models.DroppedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, doc)
	return nil
}

func (m *memoryStorage) SaveStatsSnapshot(_ context.Context, snapshot *models.StatsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *memoryStorage) CountItems(_ context.Context, itemType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, doc := range m.items {
		if doc.ItemType == itemType {
			n++
		}
	}
	return n, nil
}

func (m *memoryStorage) Close() error {
	m.closed = true
	return nil
}

func (m *memoryStorage) storedNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, doc := range m.items {
		names = append(names, doc.Fields["name"].(string))
	}
	sort.Strings(names)
	return names
}

func productDiv(id, name string) string {
	return fmt.Sprintf(`<div class="product"><span class="id">%s</span><h2>%s</h2><a class="link" href="/p/%s">more</a></div>`, id, name, id)
}

func shopServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/": productDiv("1", "Alpha") + productDiv("x", "Broken") +
			`<a href="/page2">next</a><a href="/private/secret">secret</a><a href="mailto:shop@example.com">mail</a>`,
		"/page2":          productDiv("2", "Gamma") + `<a href="/page4">deeper</a>`,
		"/page3":          productDiv("3", "Delta"),
		"/page4":          productDiv("4", "Epsilon"),
		"/private/secret": productDiv("5", "Hidden"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>http://%s/page3</loc></url>
</urlset>`, r.Host)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func shopType(t *testing.T) *item.Type {
	t.Helper()
	typ, err := item.Define(item.Definition{Name: "Product", Schema: map[string]any{
		"properties": map[string]any{
			"id":   map[string]any{"type": "integer"},
			"name": map[string]any{"type": "string"},
			"url":  map[string]any{"type": "string"},
		},
		"required": []any{"id", "name"},
	}})
	require.NoError(t, err)
	return typ
}

func shopSource(srv *httptest.Server) config.SourceConfig {
	return config.SourceConfig{
		Name:            "shop",
		StartURLs:       []string{srv.URL + "/"},
		Sitemaps:        []string{srv.URL + "/sitemap.xml"},
		ExcludePatterns: []string{`/p/`},
		MaxDepth:        1,
		Item: config.ItemSourceConfig{
			Type:     "Product",
			Selector: "div.product",
			Fields: map[string]config.FieldConfig{
				"id":   {Selector: ".id", Kind: "int"},
				"name": {Selector: "h2", Kind: "text"},
				"url":  {Selector: "a.link", Kind: "url"},
			},
		},
	}
}

func testLogic() config.LogicConfig {
	return config.LogicConfig{
		TimeoutSec:           5,
		MaxConcurrentWorkers: 2,
		UserAgent:            "schema_spider_test",
	}
}

func TestSpider_Crawl(t *testing.T) {
	srv := shopServer(t)
	st := stats.NewCollector()
	storage := &memoryStorage{}
	p := pipeline.New(st, pipeline.NewValidateStage(st), pipeline.NewStoreStage(storage, "url")).WithDropStore(storage)

	spider, err := NewSpider(shopSource(srv), testLogic(), shopType(t), p, st)
	require.NoError(t, err)

	require.NoError(t, spider.Crawl(context.Background()))

	assert.Equal(t, []string{"Alpha", "Delta", "Gamma"}, storage.storedNames())
	require.Len(t, storage.dropped, 1)
	assert.Equal(t, "shop", storage.dropped[0].Source)
	assert.Equal(t, "Broken", storage.dropped[0].Fields["name"])

	values := st.GetStats()
	assert.Equal(t, int64(2), values["spider/shop/seed_count"])
	assert.Equal(t, int64(3), values["spider/shop/pages_crawled"])
	assert.Equal(t, int64(4), values["spider/shop/items_extracted_count"])
	assert.Equal(t, int64(1), values["spider/shop/field_error_count"])
	assert.Equal(t, int64(1), values["spider/shop/robots_blocked_count"])
	assert.Equal(t, int64(3), values[pipeline.StatItemScraped])
	assert.Equal(t, int64(1), values[pipeline.StatItemDropped])
	assert.Equal(t, int64(1), values["jsonschema/errors/id"])

	for _, doc := range storage.items {
		assert.Equal(t, "Product", doc.ItemType)
		assert.Contains(t, doc.URL, "/p/")
	}
}

func TestSpider_EmptyMatchesAreNotItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><div class="product"><p>sold out</p></div>%s</body></html>`, productDiv("1", "Alpha"))
	}))
	defer srv.Close()

	st := stats.NewCollector()
	storage := &memoryStorage{}
	p := pipeline.New(st, pipeline.NewValidateStage(st), pipeline.NewStoreStage(storage, "url")).WithDropStore(storage)

	source := shopSource(srv)
	source.Sitemaps = nil
	spider, err := NewSpider(source, testLogic(), shopType(t), p, st)
	require.NoError(t, err)

	require.NoError(t, spider.Crawl(context.Background()))

	assert.Equal(t, []string{"Alpha"}, storage.storedNames())
	assert.Empty(t, storage.dropped)
	values := st.GetStats()
	assert.Equal(t, int64(1), values["spider/shop/empty_item_count"])
	assert.Equal(t, int64(1), values["spider/shop/items_extracted_count"])
}

func TestSpider_MaxPages(t *testing.T) {
	srv := shopServer(t)
	st := stats.NewCollector()
	storage := &memoryStorage{}
	p := pipeline.New(st, pipeline.NewValidateStage(st), pipeline.NewStoreStage(storage, "url"))

	source := shopSource(srv)
	source.MaxPages = 1
	spider, err := NewSpider(source, testLogic(), shopType(t), p, st)
	require.NoError(t, err)

	require.NoError(t, spider.Crawl(context.Background()))

	assert.Equal(t, int64(1), st.GetStats()["spider/shop/pages_crawled"])
	assert.Equal(t, []string{"Alpha"}, storage.storedNames())
}

func TestSpider_IgnoreRobots(t *testing.T) {
	srv := shopServer(t)
	st := stats.NewCollector()
	storage := &memoryStorage{}
	p := pipeline.New(st, pipeline.NewStoreStage(storage, "url"))

	source := shopSource(srv)
	source.Sitemaps = nil
	logic := testLogic()
	logic.IgnoreRobotsTxt = true
	spider, err := NewSpider(source, logic, shopType(t), p, st)
	require.NoError(t, err)

	require.NoError(t, spider.Crawl(context.Background()))

	assert.Contains(t, storage.storedNames(), "Hidden")
	assert.NotContains(t, storage.storedNames(), "Epsilon")
}

func TestSpider_NoSeeds(t *testing.T) {
	srv := shopServer(t)
	source := shopSource(srv)
	source.StartURLs = []string{srv.URL + "/private/secret"}
	source.Sitemaps = nil
	st := stats.NewCollector()

	spider, err := NewSpider(source, testLogic(), nil, pipeline.New(st), st)
	require.NoError(t, err)

	assert.Error(t, spider.Crawl(context.Background()))
}

func TestNewSpider_BadPattern(t *testing.T) {
	source := config.SourceConfig{Name: "bad", FollowPatterns: []string{"("}}

	_, err := NewSpider(source, testLogic(), nil, pipeline.New(nil), stats.NewCollector())

	assert.Error(t, err)
}
