package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
db:
  connection: mongodb://localhost:27017
logic:
  delay_ms: 500
  max_depth: 2
items:
  - name: Base
    schema: schemas/base.json
  - name: Product
    schema: schemas/product.yaml
    parents: [Base]
    merge_schema: true
    url_field: url
sources:
  shop:
    start_urls: [https://shop.example.com/]
    max_pages: 50
    item:
      type: Product
      selector: div.product
      fields:
        name:
          selector: h2
        price:
          selector: .price
          kind: float
        url:
          selector: a
          kind: attr
          attr: href
feed:
  path: items.jsonl
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "schema_spider", cfg.DB.Database)
	assert.Equal(t, "items", cfg.DB.Collections.Items)
	assert.Equal(t, "dropped_items", cfg.DB.Collections.Dropped)
	assert.Equal(t, "crawl_stats", cfg.DB.Collections.Stats)
	assert.Equal(t, 30, cfg.Logic.TimeoutSec)
	assert.Equal(t, 2, cfg.Logic.MaxConcurrentWorkers)
	assert.Equal(t, "schema_spider/1.0", cfg.Logic.UserAgent)

	shop := cfg.Sources["shop"]
	assert.Equal(t, "shop", shop.Name)
	assert.Equal(t, 2, shop.MaxDepth)
	assert.Equal(t, "text", shop.Item.Fields["name"].Kind)
	assert.Equal(t, "float", shop.Item.Fields["price"].Kind)
	assert.Equal(t, "items.jsonl", cfg.Feed.Path)

	require.Len(t, cfg.Items, 2)
	assert.Equal(t, []string{"Base"}, cfg.Items[1].Parents)
	require.NotNil(t, cfg.Items[1].MergeSchema)
	assert.True(t, *cfg.Items[1].MergeSchema)
	assert.Nil(t, cfg.Items[0].MergeSchema)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"parent order": `
items:
  - name: Child
    schema: c.json
    parents: [Base]
  - name: Base
    schema: b.json
`,
		"missing schema": `
items:
  - name: Lonely
`,
		"merge disabled without schema": `
items:
  - name: Base
    schema: b.json
  - name: Derived
    parents: [Base]
    merge_schema: false
`,
		"no seeds": `
sources:
  empty: {}
`,
		"unknown item": `
sources:
  shop:
    start_urls: [https://example.com]
    item:
      type: Missing
      selector: div
`,
		"bad kind": `
items:
  - name: Page
    schema: p.json
sources:
  shop:
    start_urls: [https://example.com]
    item:
      type: Page
      selector: div
      fields:
        title:
          selector: h1
          kind: markdown
`,
		"attr without name": `
items:
  - name: Page
    schema: p.json
sources:
  shop:
    start_urls: [https://example.com]
    item:
      type: Page
      selector: div
      fields:
        link:
          selector: a
          kind: attr
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParse_MergeWithoutSchema(t *testing.T) {
	_, err := Parse([]byte(`
items:
  - name: Base
    schema: b.json
  - name: Derived
    parents: [Base]
    merge_schema: true
`))
	assert.NoError(t, err)
}

func TestLoadConfig_SchemaPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	base, ok := cfg.Item("Base")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "schemas/base.json"), cfg.SchemaPath(base))

	_, ok = cfg.Item("Missing")
	assert.False(t, ok)

	abs := ItemConfig{Schema: "/etc/schema.json"}
	assert.Equal(t, "/etc/schema.json", cfg.SchemaPath(abs))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
