package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexbook/database/repository"
	"lexbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSchedulerRepo implements SchedulerRepository using MongoDB
// multi-document transactions.
type MongoSchedulerRepo struct {
	client            *mongo.Client
	lawyerColl        *mongo.Collection
	consultationColl  *mongo.Collection
	notificationColl  *mongo.Collection
	operationTimeout  time.Duration
	commitMaxAttempts int
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo(db *mongo.Database) *MongoSchedulerRepo {
	return &MongoSchedulerRepo{
		client:            db.Client(),
		lawyerColl:        db.Collection("lawyers"),
		consultationColl:  db.Collection("consultations"),
		notificationColl:  db.Collection("notifications"),
		operationTimeout:  5 * time.Second,
		commitMaxAttempts: 3,
	}
}

// GetLawyer retrieves a lawyer document by ID.
func (repo *MongoSchedulerRepo) GetLawyer(ctx context.Context, lawyerID string) (*models.Lawyer, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.operationTimeout)
	defer cancel()
	return repo.findLawyer(ctx, lawyerID)
}

func (repo *MongoSchedulerRepo) findLawyer(ctx context.Context, lawyerID string) (*models.Lawyer, error) {
	var lawyer models.Lawyer
	if err := repo.lawyerColl.FindOne(ctx, bson.M{"id": lawyerID}).Decode(&lawyer); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("lawyer %s: %w", lawyerID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching lawyer with id %s: %w", lawyerID, err)
	}
	if err := lawyer.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedDocument, err)
	}
	return &lawyer, nil
}

// GetConsultation retrieves a consultation by its ID.
func (repo *MongoSchedulerRepo) GetConsultation(ctx context.Context, consultationID string) (*models.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.operationTimeout)
	defer cancel()
	return repo.findConsultation(ctx, bson.M{"id": consultationID})
}

func (repo *MongoSchedulerRepo) findConsultation(ctx context.Context, filter bson.M) (*models.Consultation, error) {
	var c models.Consultation
	if err := repo.consultationColl.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching consultation: %w", err)
	}
	return &c, nil
}

// ListScheduledConsultations returns active consultations for a lawyer in a date range.
// Dates are stored as "yyyy-MM-dd" so lexical comparison matches calendar order.
func (repo *MongoSchedulerRepo) ListScheduledConsultations(ctx context.Context, lawyerID, fromDate, toDate string) ([]models.Consultation, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.operationTimeout)
	defer cancel()

	filter := bson.M{
		"lawyerId": lawyerID,
		"status":   models.StatusScheduled,
		"date":     bson.M{"$gte": fromDate, "$lte": toDate},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "timeSlot.start", Value: 1}})
	cursor, err := repo.consultationColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding scheduled consultations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Consultation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding consultations: %w", err)
	}
	return out, nil
}
