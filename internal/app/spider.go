package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"schema_spider/internal/config"
	"schema_spider/internal/item"
	"schema_spider/internal/pipeline"
	"schema_spider/internal/stats"
	"schema_spider/internal/urlqueue"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

const MaxHops = 15

// Spider crawls one configured source. Every element matching the item
// selector becomes an item that is handed to the pipeline.
type Spider struct {
	source    config.SourceConfig
	logic     config.LogicConfig
	itemType  *item.Type
	pipeline  *pipeline.Pipeline
	stats     *stats.Collector
	queue     *urlqueue.URLQueue
	patterns  *urlqueue.Patterns
	robots    *robotsPolicy
	client    *http.Client
	collector *colly.Collector

	// pages holds the *Page of every response whose HTML callbacks are
	// running, keyed by *colly.Response.
	pages sync.Map
	ctx   context.Context
}

// NewSpider builds the collector for source. itemType may be nil, in which
// case the source is only crawled.
func NewSpider(source config.SourceConfig, logic config.LogicConfig, itemType *item.Type, p *pipeline.Pipeline, st *stats.Collector) (*Spider, error) {
	patterns, err := urlqueue.CompilePatterns(source.FollowPatterns, source.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	timeout := time.Duration(logic.TimeoutSec) * time.Second
	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar:     jar,
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxHops {
				return fmt.Errorf("stopped after %d redirects", MaxHops)
			}
			return nil
		},
	}

	options := []func(*colly.Collector){
		colly.UserAgent(logic.UserAgent),
		colly.Async(true),
	}
	if len(source.AllowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(source.AllowedDomains...))
	}
	c := colly.NewCollector(options...)
	// robots.txt is checked by robotsPolicy before a URL is queued.
	c.IgnoreRobotsTxt = true
	c.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
	})
	if logic.RandomUserAgent {
		extensions.RandomUserAgent(c)
	}
	extensions.Referer(c)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: logic.MaxConcurrentWorkers,
		Delay:       time.Duration(logic.DelayMS) * time.Millisecond,
		RandomDelay: time.Duration(logic.DelayMS) * time.Millisecond / 2,
	}); err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	s := &Spider{
		source:    source,
		logic:     logic,
		itemType:  itemType,
		pipeline:  p,
		stats:     st,
		queue:     urlqueue.NewURLQueue(source.Name, source.MaxPages),
		patterns:  patterns,
		robots:    newRobotsPolicy(client, logic.UserAgent),
		client:    client,
		collector: c,
		ctx:       context.Background(),
	}
	s.setupCollector()
	return s, nil
}

func (s *Spider) Name() string {
	return s.source.Name
}

func (s *Spider) statKey(name string) string {
	return "spider/" + s.source.Name + "/" + name
}

func (s *Spider) setupCollector() {
	s.collector.OnRequest(func(r *colly.Request) {
		select {
		case <-s.ctx.Done():
			r.Abort()
		default:
		}
	})

	s.collector.OnResponse(func(r *colly.Response) {
		s.stats.IncValue(s.statKey("pages_crawled"), 1)
		s.stats.IncValue(s.statKey(fmt.Sprintf("response_status_count/%d", r.StatusCode)), 1)
		s.pages.Store(r, NewPage(r.Request.URL, r.Body, r.Headers.Get("Content-Type")))
	})

	s.collector.OnError(func(r *colly.Response, err error) {
		s.stats.IncValue(s.statKey("request_error_count"), 1)
		log.Printf("Error fetching %s: %v", r.Request.URL, err)
	})

	if s.itemType != nil {
		s.collector.OnHTML(s.source.Item.Selector, s.handleItem)
	}
	s.collector.OnHTML("a[href]", s.followLink)

	s.collector.OnScraped(func(r *colly.Response) {
		s.pages.Delete(r)
	})
}

func (s *Spider) page(r *colly.Response) *Page {
	if p, ok := s.pages.Load(r); ok {
		return p.(*Page)
	}
	return NewPage(r.Request.URL, r.Body, r.Headers.Get("Content-Type"))
}

func (s *Spider) handleItem(e *colly.HTMLElement) {
	it, errs := ExtractItem(s.itemType, e.DOM, s.page(e.Response), s.source.Item.Fields)
	for _, err := range errs {
		s.stats.IncValue(s.statKey("field_error_count"), 1)
		log.Printf("Skipping field on %s: %v", e.Request.URL, err)
	}
	if it.Len() == 0 {
		s.stats.IncValue(s.statKey("empty_item_count"), 1)
		return
	}
	s.stats.IncValue(s.statKey("items_extracted_count"), 1)

	// The pipeline logs and counts drops and failures.
	s.pipeline.Process(pipeline.WithSource(s.ctx, s.source.Name), it)
}

func (s *Spider) followLink(e *colly.HTMLElement) {
	// colly numbers the seed requests as depth 1.
	if s.source.MaxDepth > 0 && e.Request.Depth > s.source.MaxDepth {
		return
	}
	link := e.Request.AbsoluteURL(e.Attr("href"))
	if link == "" || !s.allowed(link) || !s.queue.Add(link) {
		return
	}
	if err := e.Request.Visit(link); err != nil && err != colly.ErrAlreadyVisited {
		log.Printf("Not following %s: %v", link, err)
	}
}

// allowed applies the follow and exclude patterns and robots.txt.
func (s *Spider) allowed(link string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if !s.patterns.ShouldFollow(link) {
		return false
	}
	return s.robotsAllowed(u)
}

func (s *Spider) robotsAllowed(u *url.URL) bool {
	if s.logic.IgnoreRobotsTxt || s.robots.Allowed(u) {
		return true
	}
	s.stats.IncValue(s.statKey("robots_blocked_count"), 1)
	return false
}

// seeds returns the start URLs followed by the pages listed in the
// source's sitemaps.
func (s *Spider) seeds(ctx context.Context) []string {
	var seeds []string
	for _, start := range s.source.StartURLs {
		u, err := url.Parse(start)
		if err != nil || !s.robotsAllowed(u) {
			continue
		}
		seeds = append(seeds, start)
	}
	for _, sitemap := range s.source.Sitemaps {
		urls, err := urlqueue.ParseSitemap(ctx, s.client, sitemap)
		if err != nil {
			log.Printf("Skipping sitemap %s: %v", sitemap, err)
			continue
		}
		for _, u := range urls {
			if s.allowed(u) {
				seeds = append(seeds, u)
			}
		}
	}
	return seeds
}

// Crawl visits the seeds and follows links until the page budget, the
// depth limit or ctx ends the crawl.
func (s *Spider) Crawl(ctx context.Context) error {
	s.ctx = ctx
	log.Printf("Starting crawl of %s", s.source.Name)

	seeds := s.seeds(ctx)
	s.stats.SetValue(s.statKey("seed_count"), int64(len(seeds)))

	visited := 0
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		if !s.queue.Add(seed) {
			continue
		}
		if err := s.collector.Visit(seed); err != nil && err != colly.ErrAlreadyVisited {
			log.Printf("Failed to visit %s: %v", seed, err)
			continue
		}
		visited++
	}
	if visited == 0 {
		return fmt.Errorf("source %s: no seed URL could be visited", s.source.Name)
	}

	s.collector.Wait()
	log.Printf("Finished crawl of %s: %d URLs queued", s.source.Name, s.queue.Size())
	return ctx.Err()
}
