package storage

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/store"
)

// IdentityRepository persists wallet display names.
type IdentityRepository struct {
	col *store.Collection[models.Identity]
}

// NewIdentityRepository opens the identities collection.
func NewIdentityRepository(c *store.Client, collection string, retry store.RetryPolicy, log *logrus.Logger) *IdentityRepository {
	return &IdentityRepository{col: store.NewCollection[models.Identity](c, collection, retry, log)}
}

// EnsureIndexes creates the unique address index. Idempotent.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "address", Value: 1}}, true, 0); err != nil {
		return err
	}
	return r.col.EnsureIndex(ctx, bson.D{{Key: "identity", Value: 1}}, false, 0)
}

// Upsert inserts new identities and refreshes display names of known addresses.
func (r *IdentityRepository) Upsert(ctx context.Context, identities []models.Identity) error {
	for _, id := range identities {
		existing, err := r.col.FindOne(ctx, bson.M{"address": id.Address}, nil)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := r.col.InsertOne(ctx, id); err != nil {
				return err
			}
			continue
		}
		if err := r.col.UpdateOne(ctx,
			bson.M{"address": id.Address},
			bson.M{"$set": bson.M{"identity": id.Identity}},
		); err != nil {
			return err
		}
	}
	return nil
}

// ByAddress returns the identity of one wallet, or nil when unknown.
func (r *IdentityRepository) ByAddress(ctx context.Context, address string) (*models.Identity, error) {
	return r.col.FindOne(ctx, bson.M{"address": address}, nil)
}

// MissingAddresses returns the subset of addresses with no stored identity.
func (r *IdentityRepository) MissingAddresses(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	existing, err := r.col.Find(ctx, bson.M{"address": bson.M{"$in": addresses}}, nil)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id.Address] = true
	}

	missing := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if !known[a] {
			missing = append(missing, a)
		}
	}
	return missing, nil
}
