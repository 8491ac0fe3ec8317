package models

type ExtractedArticle struct {
	Title   string
	Text    string
	HTML    string
	Excerpt string
}

type ScrapedItem struct {
	ID            string         `bson:"_id,omitempty"`
	ItemType      string         `bson:"item_type"`
	Source        string         `bson:"source,omitempty"`
	URL           string         `bson:"url,omitempty"`
	NormalizedURL string         `bson:"normalized_url"`
	ContentHash   string         `bson:"content_hash"`
	Fields        map[string]any `bson:"fields"`
	FirstScraped  int64          `bson:"first_scraped"`
	LastScraped   int64          `bson:"last_scraped"`
	ScrapedCount  int            `bson:"scraped_count"`
}

type DroppedItem struct {
	ID        string         `bson:"_id,omitempty"`
	ItemType  string         `bson:"item_type"`
	Source    string         `bson:"source,omitempty"`
	Reason    string         `bson:"reason"`
	Fields    map[string]any `bson:"fields"`
	Timestamp int64          `bson:"timestamp"`
}

type StatsSnapshot struct {
	ID        string           `bson:"_id,omitempty"`
	StartedAt int64            `bson:"started_at"`
	Finished  int64            `bson:"finished_at"`
	Values    map[string]int64 `bson:"values"`
}
