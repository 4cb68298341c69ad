package storage

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/azero-feed/internal/models"
	"github.com/azero-feed/internal/store"
)

// ValidatorRepository persists nominator-to-validator mappings.
type ValidatorRepository struct {
	col *store.Collection[models.Validator]
}

// NewValidatorRepository opens the validators collection.
func NewValidatorRepository(c *store.Client, collection string, retry store.RetryPolicy, log *logrus.Logger) *ValidatorRepository {
	return &ValidatorRepository{col: store.NewCollection[models.Validator](c, collection, retry, log)}
}

// EnsureIndexes creates the unique nominator index and the validator query
// index. Idempotent.
func (r *ValidatorRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.col.EnsureIndex(ctx, bson.D{{Key: "nominator", Value: 1}}, true, 0); err != nil {
		return err
	}
	return r.col.EnsureIndex(ctx, bson.D{{Key: "validator", Value: 1}}, false, 0)
}

// Upsert inserts new mappings and overwrites the validator of known
// nominators (a nominator re-staking moves all of its stake).
func (r *ValidatorRepository) Upsert(ctx context.Context, validators []models.Validator) error {
	for _, v := range validators {
		existing, err := r.col.FindOne(ctx, bson.M{"nominator": v.Nominator}, nil)
		if err != nil {
			return err
		}
		if existing == nil {
			if err := r.col.InsertOne(ctx, v); err != nil {
				return err
			}
			continue
		}
		if err := r.col.UpdateOne(ctx,
			bson.M{"nominator": v.Nominator},
			bson.M{"$set": bson.M{"validator": v.Validator}},
		); err != nil {
			return err
		}
	}
	return nil
}

// ByNominator returns the mapping for one nominator, or nil when unknown.
func (r *ValidatorRepository) ByNominator(ctx context.Context, nominator string) (*models.Validator, error) {
	return r.col.FindOne(ctx, bson.M{"nominator": nominator}, nil)
}

// MissingNominators returns the subset of nominators with no stored mapping.
func (r *ValidatorRepository) MissingNominators(ctx context.Context, nominators []string) ([]string, error) {
	if len(nominators) == 0 {
		return nil, nil
	}

	existing, err := r.col.Find(ctx, bson.M{"nominator": bson.M{"$in": nominators}}, nil)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, v := range existing {
		known[v.Nominator] = true
	}

	missing := make([]string, 0, len(nominators))
	for _, n := range nominators {
		if !known[n] {
			missing = append(missing, n)
		}
	}
	return missing, nil
}
