package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// FieldConfig tells the extractor how to fill one item field from the
// element matched by the item selector.
type FieldConfig struct {
	Selector string `yaml:"selector"`
	// Kind is one of text, html, attr, int, float, list, url, readability.
	Kind string `yaml:"kind"`
	Attr string `yaml:"attr"`
}

type ItemSourceConfig struct {
	Type     string                 `yaml:"type"`
	Selector string                 `yaml:"selector"`
	Fields   map[string]FieldConfig `yaml:"fields"`
}

type SourceConfig struct {
	Name            string           `yaml:"name"`
	AllowedDomains  []string         `yaml:"allowed_domains"`
	StartURLs       []string         `yaml:"start_urls"`
	Sitemaps        []string         `yaml:"sitemaps"`
	FollowPatterns  []string         `yaml:"follow_patterns"`
	ExcludePatterns []string         `yaml:"exclude_patterns"`
	MaxPages        int              `yaml:"max_pages"`
	MaxDepth        int              `yaml:"max_depth"`
	Item            ItemSourceConfig `yaml:"item"`
}

// ItemConfig declares an item type. Parents must be declared earlier.
type ItemConfig struct {
	Name        string   `yaml:"name"`
	Schema      string   `yaml:"schema"`
	Parents     []string `yaml:"parents"`
	MergeSchema *bool    `yaml:"merge_schema"`
	URLField    string   `yaml:"url_field"`
}

type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Items   string `yaml:"items"`
		Dropped string `yaml:"dropped"`
		Stats   string `yaml:"stats"`
	} `yaml:"collections"`
}

type LogicConfig struct {
	DelayMS              int    `yaml:"delay_ms"`
	TimeoutSec           int    `yaml:"timeout_sec"`
	MaxDepth             int    `yaml:"max_depth"`
	MaxConcurrentWorkers int    `yaml:"max_concurrent_workers"`
	UserAgent            string `yaml:"user_agent"`
	RandomUserAgent      bool   `yaml:"random_user_agent"`
	IgnoreRobotsTxt      bool   `yaml:"ignore_robots_txt"`
}

type FeedConfig struct {
	Path string `yaml:"path"`
}

type SpiderConfig struct {
	DB      DBConfig                `yaml:"db"`
	Logic   LogicConfig             `yaml:"logic"`
	Items   []ItemConfig            `yaml:"items"`
	Sources map[string]SourceConfig `yaml:"sources"`
	Feed    FeedConfig              `yaml:"feed"`

	// Dir is the directory of the config file; schema paths are relative
	// to it.
	Dir string `yaml:"-"`
}

func LoadConfig(path string) (*SpiderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

func Parse(data []byte) (*SpiderConfig, error) {
	var cfg SpiderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SpiderConfig) applyDefaults() {
	if c.DB.Database == "" {
		c.DB.Database = "schema_spider"
	}
	if c.DB.Collections.Items == "" {
		c.DB.Collections.Items = "items"
	}
	if c.DB.Collections.Dropped == "" {
		c.DB.Collections.Dropped = "dropped_items"
	}
	if c.DB.Collections.Stats == "" {
		c.DB.Collections.Stats = "crawl_stats"
	}
	if c.Logic.TimeoutSec <= 0 {
		c.Logic.TimeoutSec = 30
	}
	if c.Logic.MaxConcurrentWorkers <= 0 {
		c.Logic.MaxConcurrentWorkers = 2
	}
	if c.Logic.UserAgent == "" {
		c.Logic.UserAgent = "schema_spider/1.0"
	}
	for name, src := range c.Sources {
		if src.Name == "" {
			src.Name = name
		}
		if src.MaxDepth == 0 {
			src.MaxDepth = c.Logic.MaxDepth
		}
		for fieldName, field := range src.Item.Fields {
			if field.Kind == "" {
				field.Kind = "text"
			}
			src.Item.Fields[fieldName] = field
		}
		c.Sources[name] = src
	}
}

// Validate checks cross references between items and sources.
func (c *SpiderConfig) Validate() error {
	var errs []error
	declared := make(map[string]bool)
	for i, it := range c.Items {
		if it.Name == "" {
			errs = append(errs, fmt.Errorf("items[%d]: missing name", i))
			continue
		}
		if declared[it.Name] {
			errs = append(errs, fmt.Errorf("item %s: declared twice", it.Name))
		}
		if it.Schema == "" && (len(it.Parents) == 0 || (it.MergeSchema != nil && !*it.MergeSchema)) {
			errs = append(errs, fmt.Errorf("item %s: missing schema", it.Name))
		}
		for _, parent := range it.Parents {
			if !declared[parent] {
				errs = append(errs, fmt.Errorf("item %s: parent %s must be declared first", it.Name, parent))
			}
		}
		declared[it.Name] = true
	}
	for name, src := range c.Sources {
		if len(src.StartURLs) == 0 && len(src.Sitemaps) == 0 {
			errs = append(errs, fmt.Errorf("source %s: no start_urls or sitemaps", name))
		}
		if src.Item.Type != "" && !declared[src.Item.Type] {
			errs = append(errs, fmt.Errorf("source %s: unknown item type %s", name, src.Item.Type))
		}
		if src.Item.Type != "" && src.Item.Selector == "" {
			errs = append(errs, fmt.Errorf("source %s: item selector is required", name))
		}
		for fieldName, field := range src.Item.Fields {
			if !validKinds[field.Kind] {
				errs = append(errs, fmt.Errorf("source %s: field %s: unknown kind %q", name, fieldName, field.Kind))
			}
			if field.Kind == "attr" && field.Attr == "" {
				errs = append(errs, fmt.Errorf("source %s: field %s: attr kind needs attr", name, fieldName))
			}
		}
	}
	return errors.Join(errs...)
}

var validKinds = map[string]bool{
	"text": true, "html": true, "attr": true, "int": true,
	"float": true, "list": true, "url": true, "readability": true,
}

// Item returns the declaration of the named item type.
func (c *SpiderConfig) Item(name string) (ItemConfig, bool) {
	for _, it := range c.Items {
		if it.Name == name {
			return it, true
		}
	}
	return ItemConfig{}, false
}

// SchemaPath resolves an item's schema file against the config directory.
func (c *SpiderConfig) SchemaPath(it ItemConfig) string {
	if it.Schema == "" || filepath.IsAbs(it.Schema) || c.Dir == "" {
		return it.Schema
	}
	return filepath.Join(c.Dir, it.Schema)
}
