package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"schema_spider/internal/config"
	"schema_spider/internal/db"
	"schema_spider/internal/item"
	"schema_spider/internal/models"
	"schema_spider/internal/pipeline"
	"schema_spider/internal/stats"
)

// Storage is where items, dropped items and crawl stats end up.
type Storage interface {
	pipeline.ItemStore
	pipeline.DropStore
	SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error
	CountItems(ctx context.Context, itemType string) (int64, error)
	Close() error
}

type SpiderApp struct {
	config   *config.SpiderConfig
	storage  Storage
	registry *item.Registry
	stats    *stats.Collector
	pipeline *pipeline.Pipeline
	feed     *pipeline.FeedExporter
	feedFile *os.File
	spiders  map[string]*Spider
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSpiderApp loads the item types, connects to MongoDB and builds one
// spider per source.
func NewSpiderApp(cfg *config.SpiderConfig) (*SpiderApp, error) {
	registry, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	mongoDB, err := db.NewMongoDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	a, err := newSpiderApp(cfg, registry, mongoDB)
	if err != nil {
		mongoDB.Close()
		return nil, err
	}
	return a, nil
}

func newSpiderApp(cfg *config.SpiderConfig, registry *item.Registry, storage Storage) (*SpiderApp, error) {
	st := stats.NewCollector()

	store := pipeline.NewStoreStage(storage, "")
	for _, ic := range cfg.Items {
		if ic.URLField != "" {
			store.WithURLField(ic.Name, ic.URLField)
		}
	}
	stages := []pipeline.Stage{pipeline.NewValidateStage(st), store}

	a := &SpiderApp{
		config:   cfg,
		storage:  storage,
		registry: registry,
		stats:    st,
		spiders:  make(map[string]*Spider),
	}

	if cfg.Feed.Path != "" {
		f, err := os.Create(cfg.Feed.Path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		a.feedFile = f
		a.feed = pipeline.NewFeedExporter(f)
		stages = append(stages, a.feed)
	}
	a.pipeline = pipeline.New(st, stages...).WithDropStore(storage)

	for name, source := range cfg.Sources {
		var itemType *item.Type
		if source.Item.Type != "" {
			t, ok := registry.Get(source.Item.Type)
			if !ok {
				a.closeFeed()
				return nil, fmt.Errorf("source %s: unknown item type %s", name, source.Item.Type)
			}
			itemType = t
		}
		spider, err := NewSpider(source, cfg.Logic, itemType, a.pipeline, st)
		if err != nil {
			a.closeFeed()
			return nil, err
		}
		a.spiders[name] = spider
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// Run crawls every source until all of them finish or the process is
// interrupted, then records the crawl stats.
func (a *SpiderApp) Run() error {
	log.Println("Starting spiders...")
	log.Printf("DB: %s", a.config.DB.Database)
	log.Printf("Item types: %v", a.registry.Names())
	log.Printf("Delay between requests: %d ms", a.config.Logic.DelayMS)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	startedAt := time.Now()
	done := make(chan struct{})
	go func() {
		a.crawl()
		close(done)
	}()

	select {
	case <-sigChan:
		log.Println("Interrupt received, shutting down...")
		a.cancel()
		<-done
	case <-done:
	}

	return a.shutdown(startedAt)
}

func (a *SpiderApp) crawl() {
	for name, spider := range a.spiders {
		a.wg.Add(1)
		go func(name string, spider *Spider) {
			defer a.wg.Done()
			if err := spider.Crawl(a.ctx); err != nil {
				log.Printf("Error crawling %s: %v", name, err)
			}
		}(name, spider)
	}
	a.wg.Wait()
}

func (a *SpiderApp) shutdown(startedAt time.Time) error {
	a.cancel()

	var feedErr error
	if a.feed != nil {
		log.Printf("Exported %d items to %s", a.feed.Count(), a.config.Feed.Path)
		feedErr = a.closeFeed()
	}

	a.stats.Dump()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot := &models.StatsSnapshot{
		StartedAt: startedAt.Unix(),
		Finished:  time.Now().Unix(),
		Values:    a.stats.GetStats(),
	}
	if err := a.storage.SaveStatsSnapshot(ctx, snapshot); err != nil {
		log.Printf("Error saving crawl stats: %v", err)
	}

	for _, name := range a.registry.Names() {
		if n, err := a.storage.CountItems(ctx, name); err == nil {
			log.Printf("Stored %s items: %d", name, n)
		}
	}

	if err := a.storage.Close(); err != nil {
		return err
	}
	return feedErr
}

func (a *SpiderApp) closeFeed() error {
	if a.feedFile == nil {
		return nil
	}
	err := a.feed.Flush()
	if cerr := a.feedFile.Close(); err == nil {
		err = cerr
	}
	a.feedFile = nil
	return err
}

// Stats exposes the crawl counters.
func (a *SpiderApp) Stats() *stats.Collector {
	return a.stats
}
