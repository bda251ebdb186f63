package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Client struct {
	DB      *mongo.Database
	c       *mongo.Client
	timeout time.Duration
}

// Connect opens the client and pings the primary so an unreachable server
// fails here rather than on the first write.
func Connect(ctx context.Context, uri, db string, timeout time.Duration) (*Client, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cl, err := mongo.Connect(cctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := cl.Ping(cctx, readpref.Primary()); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Client{DB: cl.Database(db), c: cl, timeout: timeout}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.c.Disconnect(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()
	return c.c.Ping(ctx, readpref.Primary())
}

// opCtx bounds a single database operation by the configured timeout.
func (c *Client) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
