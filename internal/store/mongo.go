// Package store provides a thin typed wrapper over a MongoDB collection.
// Every operation retries per an injectable policy (unbounded by default);
// duplicate-key violations on insert are swallowed, which is the record
// deduplication mechanism for hash-keyed collections.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultRetryDelay = 100 * time.Millisecond
	connectTimeout    = 10 * time.Second
	maxIdleTime       = 90 * time.Second
)

// RetryPolicy controls how store failures are retried. A zero MaxAttempts
// retries forever; tests inject a small bound instead.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy retries forever with the standard short delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: defaultRetryDelay}
}

func (p RetryPolicy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Client is a connected MongoDB database handle shared by the repositories.
type Client struct {
	mc *mongo.Client
	db *mongo.Database
}

// Connect dials the document store and verifies connectivity.
func Connect(ctx context.Context, uri, database, appName string) (*Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout).
		SetMaxConnIdleTime(maxIdleTime).
		SetMinPoolSize(1).
		SetMaxPoolSize(1).
		SetRetryReads(true).
		SetRetryWrites(true).
		SetDirect(true)

	mc, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := mc.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return &Client{mc: mc, db: mc.Database(database)}, nil
}

// Close releases the underlying connections.
func (c *Client) Close(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// Collection is a typed view over one collection.
type Collection[T any] struct {
	name  string
	col   *mongo.Collection
	retry RetryPolicy
	log   *logrus.Entry
}

// NewCollection opens a typed collection handle.
func NewCollection[T any](c *Client, name string, retry RetryPolicy, log *logrus.Logger) *Collection[T] {
	return &Collection[T]{
		name:  name,
		col:   c.db.Collection(name),
		retry: retry,
		log:   log.WithField("component", "store").WithField("collection", name),
	}
}

// EnsureIndex creates an index idempotently. A non-zero ttl makes it a TTL
// index expiring documents that long after the indexed timestamp.
func (c *Collection[T]) EnsureIndex(ctx context.Context, keys bson.D, unique bool, ttl time.Duration) error {
	opts := options.Index()
	if unique {
		opts = opts.SetUnique(true)
	}
	if ttl > 0 {
		opts = opts.SetExpireAfterSeconds(int32(ttl / time.Second))
	}
	model := mongo.IndexModel{Keys: keys, Options: opts}

	return c.withRetry(ctx, "create_index", func() error {
		_, err := c.col.Indexes().CreateOne(ctx, model)
		return err
	})
}

// InsertOne stores a document. A duplicate-key violation is not an error:
// the document already exists and the insert is dropped silently.
func (c *Collection[T]) InsertOne(ctx context.Context, doc T) error {
	return c.withRetry(ctx, "insert_one", func() error {
		_, err := c.col.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
}

// FindOne returns the first matching document, or nil when none matches.
func (c *Collection[T]) FindOne(ctx context.Context, filter any, sort bson.D) (*T, error) {
	opts := options.FindOne()
	if sort != nil {
		opts = opts.SetSort(sort)
	}

	var out *T
	err := c.withRetry(ctx, "find_one", func() error {
		var doc T
		err := c.col.FindOne(ctx, filter, opts).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			out = nil
			return nil
		}
		if err != nil {
			return err
		}
		out = &doc
		return nil
	})
	return out, err
}

// Find returns all matching documents. A cursor cut off by the server mid
// drain ("Cannot run getMore") yields the documents read so far.
func (c *Collection[T]) Find(ctx context.Context, filter any, sort bson.D) ([]T, error) {
	opts := options.Find()
	if sort != nil {
		opts = opts.SetSort(sort)
	}

	var out []T
	err := c.withRetry(ctx, "find", func() error {
		cur, err := c.col.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		docs := make([]T, 0)
		for cur.Next(ctx) {
			var doc T
			if err := cur.Decode(&doc); err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		if err := cur.Err(); err != nil && !isCursorExhausted(err) {
			return err
		}

		out = docs
		return nil
	})
	return out, err
}

// UpdateOne applies an update to the first matching document.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter, update any) error {
	return c.withRetry(ctx, "update_one", func() error {
		_, err := c.col.UpdateOne(ctx, filter, update)
		return err
	})
}

func (c *Collection[T]) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		c.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt}).Warn("store operation failed, retrying")
		if c.retry.exhausted(attempt) {
			return fmt.Errorf("%s on %s failed after %d attempts: %w", op, c.name, attempt, err)
		}

		select {
		case <-time.After(c.retry.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isCursorExhausted(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Cannot run getMore")
}
