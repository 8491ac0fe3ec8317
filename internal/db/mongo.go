package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"schema_spider/internal/config"
	"schema_spider/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	client  *mongo.Client
	items   *mongo.Collection
	dropped *mongo.Collection
	stats   *mongo.Collection
}

func NewMongoDB(cfg config.DBConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	d := &MongoDB{
		client:  client,
		items:   database.Collection(cfg.Collections.Items),
		dropped: database.Collection(cfg.Collections.Dropped),
		stats:   database.Collection(cfg.Collections.Stats),
	}

	d.createIndexes(ctx)
	return d, nil
}

func (d *MongoDB) createIndexes(ctx context.Context) {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{d.items, mongo.IndexModel{
			Keys:    bson.D{{Key: "item_type", Value: 1}, {Key: "normalized_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.items, mongo.IndexModel{Keys: bson.D{{Key: "last_scraped", Value: 1}}}},
		{d.dropped, mongo.IndexModel{Keys: bson.D{{Key: "item_type", Value: 1}, {Key: "timestamp", Value: -1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			log.Printf("Failed to create index on %s: %v", idx.coll.Name(), err)
		}
	}
}

// SaveItem upserts by item type and normalized URL. The first scrape time
// is kept and scraped_count is incremented on every save.
func (d *MongoDB) SaveItem(ctx context.Context, doc *models.ScrapedItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"item_type": doc.ItemType, "normalized_url": doc.NormalizedURL}
	update := bson.M{
		"$set": bson.M{
			"source":       doc.Source,
			"url":          doc.URL,
			"content_hash": doc.ContentHash,
			"fields":       doc.Fields,
			"last_scraped": doc.LastScraped,
		},
		"$setOnInsert": bson.M{"first_scraped": doc.FirstScraped},
		"$inc":         bson.M{"scraped_count": 1},
	}

	_, err := d.items.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save item %s: %w", doc.NormalizedURL, err)
	}
	return nil
}

func (d *MongoDB) SaveDroppedItem(ctx context.Context, doc *models.DroppedItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.dropped.InsertOne(ctx, doc)
	return err
}

func (d *MongoDB) SaveStatsSnapshot(ctx context.Context, snapshot *models.StatsSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.stats.InsertOne(ctx, snapshot)
	return err
}

// CountItems returns how many items of the given type are stored.
func (d *MongoDB) CountItems(ctx context.Context, itemType string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.items.CountDocuments(ctx, bson.M{"item_type": itemType})
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
