package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ===== Articles =====
type ArticleDoc struct {
	Title       string    `bson:"title" json:"title"`
	SourceName  string    `bson:"source_name" json:"source_name"`
	Author      string    `bson:"author" json:"author"`
	Description string    `bson:"description" json:"description"`
	URL         string    `bson:"url" json:"url"`
	PublishedAt time.Time `bson:"published_at" json:"published_at"`
}

func ArticleIndexes() []IndexSpec {
	return []IndexSpec{{Key: "published_at", Desc: true}}
}

// FindArticles pages through an article collection, newest first.
func (c *Client) FindArticles(ctx context.Context, collection string, skip, limit int64) ([]ArticleDoc, int64, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	col := c.DB.Collection(collection)
	cur, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	items := []ArticleDoc{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	total, err := col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
