package lawyerRepo

import (
	"context"
	"fmt"
	"time"

	"lexbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLawyerRepo implements LawyerRepository using MongoDB.
type MongoLawyerRepo struct {
	coll *mongo.Collection
}

// NewMongoLawyerRepo creates a new instance of LawyerRepository using MongoDB.
func NewMongoLawyerRepo(db *mongo.Database) *MongoLawyerRepo {
	return &MongoLawyerRepo{coll: db.Collection("lawyers")}
}

// Upsert validates the lawyer and replaces the stored document, creating it if needed.
func (r *MongoLawyerRepo) Upsert(ctx context.Context, lawyer *models.Lawyer) error {
	if err := lawyer.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if lawyer.CreatedAt.IsZero() {
		lawyer.CreatedAt = now
	}
	lawyer.UpdatedAt = now

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": lawyer.ID}, lawyer, opts); err != nil {
		return fmt.Errorf("failed to upsert lawyer with id %s: %w", lawyer.ID, err)
	}
	return nil
}

// ListBookable returns verified, active lawyers ordered by name.
func (r *MongoLawyerRepo) ListBookable(ctx context.Context, limit int64) ([]models.Lawyer, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"verified": true, "active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lawyers: %w", err)
	}
	defer cursor.Close(ctx)

	var lawyers []models.Lawyer
	for cursor.Next(ctx) {
		var l models.Lawyer
		if err := cursor.Decode(&l); err != nil {
			return nil, fmt.Errorf("failed to decode lawyer: %w", err)
		}
		if l.Validate() != nil {
			continue
		}
		lawyers = append(lawyers, l)
	}
	return lawyers, cursor.Err()
}
