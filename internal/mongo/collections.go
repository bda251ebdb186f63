package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const insertBatchSize = 1000

// DropResult tells a dropped collection apart from one that was not there.
type DropResult int

const (
	DropFailed DropResult = iota
	DropNotNeeded
	Dropped
)

func (r DropResult) String() string {
	switch r {
	case DropNotNeeded:
		return "not_needed"
	case Dropped:
		return "dropped"
	default:
		return "failed"
	}
}

type IndexSpec struct {
	Key    string
	Unique bool
	Desc   bool
}

func (c *Client) DropCollection(ctx context.Context, name string) (DropResult, error) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	names, err := c.DB.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return DropFailed, fmt.Errorf("list collections: %w", err)
	}
	if len(names) == 0 {
		return DropNotNeeded, nil
	}
	if err := c.DB.Collection(name).Drop(ctx); err != nil {
		return DropFailed, fmt.Errorf("drop %s: %w", name, err)
	}
	return Dropped, nil
}

// InsertAll writes docs in order, in batches.
func (c *Client) InsertAll(ctx context.Context, name string, docs []any) error {
	col := c.DB.Collection(name)
	for start := 0; start < len(docs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(docs))
		bctx, cancel := c.opCtx(ctx)
		_, err := col.InsertMany(bctx, docs[start:end], options.InsertMany().SetOrdered(true))
		cancel()
		if err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return nil
}

func (c *Client) EnsureIndexes(ctx context.Context, name string, specs ...IndexSpec) error {
	if len(specs) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(specs))
	for _, s := range specs {
		order := 1
		if s.Desc {
			order = -1
		}
		m := mongo.IndexModel{Keys: bson.D{{Key: s.Key, Value: order}}}
		if s.Unique {
			m.Options = options.Index().SetUnique(true)
		}
		models = append(models, m)
	}
	ctx, cancel := c.opCtx(ctx)
	defer cancel()
	if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", name, err)
	}
	return nil
}
