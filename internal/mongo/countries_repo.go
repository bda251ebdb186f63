package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ===== Countries =====
type CountryDoc struct {
	Name                  string    `bson:"name" json:"name"`
	Confirmed             int64     `bson:"confirmed" json:"confirmed"`
	Deaths                int64     `bson:"deaths" json:"deaths"`
	Active                int64     `bson:"active" json:"active"`
	Recovered             int64     `bson:"recovered" json:"recovered"`
	LastUpdatedBySourceAt time.Time `bson:"last_updated_by_source_at" json:"last_updated_by_source_at"`
}

var ErrNotFound = errors.New("not found")

func CountryIndexes() []IndexSpec {
	return []IndexSpec{{Key: "name", Unique: true}}
}

// FindCountries pages through a country collection sorted by name; q is a
// case-insensitive substring match on the name.
func (c *Client) FindCountries(ctx context.Context, collection, q string, skip, limit int64) ([]CountryDoc, int64, error) {
	filter := bson.M{}
	if q != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	col := c.DB.Collection(collection)
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	items := []CountryDoc{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (c *Client) FindCountry(ctx context.Context, collection, name string) (CountryDoc, error) {
	var out CountryDoc
	err := c.DB.Collection(collection).
		FindOne(ctx, bson.M{"name": name}, options.FindOne().SetProjection(bson.M{"_id": 0})).
		Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return CountryDoc{}, ErrNotFound
	}
	return out, err
}
