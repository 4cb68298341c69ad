package storage

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/store"
)

// PostedRepository records hashes of messages already delivered to the feed
// channel so repeated poll cycles never post the same text twice.
type PostedRepository struct {
	col *store.Collection[models.PostedMessage]
}

// NewPostedRepository opens the posted-messages collection.
func NewPostedRepository(c *store.Client, collection string, retry store.RetryPolicy, log *logrus.Logger) *PostedRepository {
	return &PostedRepository{col: store.NewCollection[models.PostedMessage](c, collection, retry, log)}
}

// EnsureIndexes creates the unique hash index. Idempotent.
func (r *PostedRepository) EnsureIndexes(ctx context.Context) error {
	return r.col.EnsureIndex(ctx, bson.D{{Key: "already_posted_hash", Value: 1}}, true, 0)
}

// Record marks a message hash as posted.
func (r *PostedRepository) Record(ctx context.Context, hash string) error {
	return r.col.InsertOne(ctx, models.PostedMessage{Hash: hash})
}

// FilterNew returns the subset of hashes not yet posted, preserving order.
func (r *PostedRepository) FilterNew(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	existing, err := r.col.Find(ctx, bson.M{"already_posted_hash": bson.M{"$in": hashes}}, nil)
	if err != nil {
		return nil, err
	}

	posted := make(map[string]bool, len(existing))
	for _, p := range existing {
		posted[p.Hash] = true
	}

	fresh := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if !posted[h] {
			fresh = append(fresh, h)
		}
	}
	return fresh, nil
}
