package storage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/store"
)

// OperationRepository persists enriched on-chain operations.
type OperationRepository struct {
	col *store.Collection[models.Operation]
}

// NewOperationRepository opens the operations collection.
func NewOperationRepository(c *store.Client, collection string, retry store.RetryPolicy, log *logrus.Logger) *OperationRepository {
	return &OperationRepository{col: store.NewCollection[models.Operation](c, collection, retry, log)}
}

// EnsureIndexes creates the unique hash index, the retention TTL index and
// the query indexes. Idempotent.
func (r *OperationRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "hash", Value: 1}}, true, 0); err != nil {
		return err
	}
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "operation_timestamp", Value: 1}}, false, RecordsTTL); err != nil {
		return err
	}
	for _, field := range []string{"operation_type", "from_wallet", "to_wallet", "extrinsic_index"} {
		if err := r.col.EnsureIndex(ctx, bson.D{{Key: field, Value: 1}}, false, 0); err != nil {
			return err
		}
	}
	return nil
}

// Import stores operations one by one; duplicates are dropped by the unique index.
func (r *OperationRepository) Import(ctx context.Context, ops []models.Operation) error {
	for _, op := range ops {
		if err := r.col.InsertOne(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// Window returns operations inside [from, to), oldest first.
func (r *OperationRepository) Window(ctx context.Context, from, to time.Time) ([]models.Operation, error) {
	filter := bson.M{
		"operation_timestamp": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}
	return r.col.Find(ctx, filter, bson.D{{Key: "operation_timestamp", Value: 1}})
}

// FilterNew drops operations whose extrinsic index is already stored, so
// enrichment is only spent on unseen records.
func (r *OperationRepository) FilterNew(ctx context.Context, ops []models.Operation) ([]models.Operation, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	indexes := make([]string, 0, len(ops))
	for _, op := range ops {
		indexes = append(indexes, op.ExtrinsicIndex)
	}

	existing, err := r.col.Find(ctx, bson.M{"extrinsic_index": bson.M{"$in": indexes}}, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(existing))
	for _, op := range existing {
		seen[op.ExtrinsicIndex] = true
	}

	fresh := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		if !seen[op.ExtrinsicIndex] {
			fresh = append(fresh, op)
		}
	}
	return fresh, nil
}
