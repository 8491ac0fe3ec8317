package stats

import (
	"log"
	"sort"
	"strings"
	"sync"
)

// Collector holds crawl counters. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewCollector() *Collector {
	return &Collector{values: make(map[string]int64)}
}

func (c *Collector) IncValue(key string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += count
}

func (c *Collector) SetValue(key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// MaxValue keeps the larger of the stored and the given value.
func (c *Collector) MaxValue(key string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.values[key]; !ok || value > cur {
		c.values[key] = value
	}
}

func (c *Collector) GetValue(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// GetStats returns a copy of all counters.
func (c *Collector) GetStats() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// WithPrefix returns the counters whose key starts with prefix.
func (c *Collector) WithPrefix(prefix string) map[string]int64 {
	out := make(map[string]int64)
	for k, v := range c.GetStats() {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// Dump logs every counter, sorted by key.
func (c *Collector) Dump() {
	values := c.GetStats()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	log.Println("Dumping crawl stats:")
	for _, k := range keys {
		log.Printf("  %s: %d", k, values[k])
	}
}
