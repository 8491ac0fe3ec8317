package app

import (
	"fmt"

	"schema_spider/internal/config"
	"schema_spider/internal/item"
	"schema_spider/internal/schema"
)

// LoadRegistry defines every configured item type in declaration order,
// reading schema files relative to the config file.
func LoadRegistry(cfg *config.SpiderConfig) (*item.Registry, error) {
	registry := item.NewRegistry()
	for _, ic := range cfg.Items {
		var doc map[string]any
		if ic.Schema != "" {
			loaded, err := schema.LoadFile(cfg.SchemaPath(ic))
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", ic.Name, err)
			}
			doc = loaded
		}
		if _, err := registry.Define(ic.Name, doc, ic.Parents, ic.MergeSchema); err != nil {
			return nil, fmt.Errorf("item %s: %w", ic.Name, err)
		}
	}
	return registry, nil
}
