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
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
	codeWriteConflict         = 112
)

// WithTransaction runs fn inside a snapshot-isolated MongoDB transaction.
// Two transactions that both insert the same active booking are stopped by
// the partial unique index, and both flip the same lawyer document, so the
// second committer always observes a conflict.
func (repo *MongoSchedulerRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := repo.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("could not start transaction: %w", err)
		}
		if err := fn(sc, &mongoTx{repo: repo}); err != nil {
			abortCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = sess.AbortTransaction(abortCtx)
			return classifyMongoError(err)
		}
		return repo.commit(sc, sess)
	})
}

// commit retries the commit itself while the server reports an unknown
// result; re-running the whole transaction in that case could double book.
func (repo *MongoSchedulerRepo) commit(ctx context.Context, sess mongo.Session) error {
	var err error
	for attempt := 1; attempt <= repo.commitMaxAttempts; attempt++ {
		err = sess.CommitTransaction(ctx)
		if err == nil {
			return nil
		}
		if !hasErrorLabel(err, labelUnknownCommitResult) || ctx.Err() != nil {
			break
		}
	}
	return classifyMongoError(fmt.Errorf("commit transaction: %w", err))
}

func hasErrorLabel(err error, label string) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(label)
}

// classifyMongoError maps driver errors onto repository sentinels and
// leaves every other error untouched.
func classifyMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrWriteConflict) || errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(codeWriteConflict) {
		return fmt.Errorf("%w: %w", repository.ErrWriteConflict, err)
	}
	if hasErrorLabel(err, labelTransientTransaction) {
		return fmt.Errorf("%w: %w", repository.ErrWriteConflict, err)
	}
	return err
}

// mongoTx implements Tx against the session bound to ctx.
type mongoTx struct {
	repo *MongoSchedulerRepo
}

func (tx *mongoTx) GetLawyer(ctx context.Context, lawyerID string) (*models.Lawyer, error) {
	return tx.repo.findLawyer(ctx, lawyerID)
}

func (tx *mongoTx) FindScheduledConsultation(ctx context.Context, lawyerID, date, start string) (*models.Consultation, error) {
	return tx.repo.findConsultation(ctx, bson.M{
		"lawyerId":       lawyerID,
		"date":           date,
		"timeSlot.start": start,
		"status":         models.StatusScheduled,
	})
}

// HasScheduledOnWeekday scans the lawyer's scheduled consultations at start.
// Concurrent bookings of the same template slot also update the lawyer
// document, so the snapshot cannot miss one without a write conflict.
func (tx *mongoTx) HasScheduledOnWeekday(ctx context.Context, lawyerID string, wd time.Weekday, start, excludeID string) (bool, error) {
	filter := bson.M{
		"lawyerId":       lawyerID,
		"timeSlot.start": start,
		"status":         models.StatusScheduled,
		"id":             bson.M{"$ne": excludeID},
	}
	opts := options.Find().SetProjection(bson.M{"id": 1, "date": 1})
	cursor, err := tx.repo.consultationColl.Find(ctx, filter, opts)
	if err != nil {
		return false, fmt.Errorf("error finding scheduled consultations: %w", classifyMongoError(err))
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var c models.Consultation
		if err := cursor.Decode(&c); err != nil {
			return false, fmt.Errorf("error decoding consultation: %w", err)
		}
		if day, err := c.Weekday(); err == nil && day == wd {
			return true, nil
		}
	}
	if err := cursor.Err(); err != nil {
		return false, classifyMongoError(err)
	}
	return false, nil
}

func (tx *mongoTx) GetConsultation(ctx context.Context, consultationID string) (*models.Consultation, error) {
	return tx.repo.findConsultation(ctx, bson.M{"id": consultationID})
}

func (tx *mongoTx) InsertConsultation(ctx context.Context, c *models.Consultation) error {
	if _, err := tx.repo.consultationColl.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert consultation failed: %w", classifyMongoError(err))
	}
	return nil
}

func (tx *mongoTx) UpdateConsultationStatus(ctx context.Context, consultationID string, from, to models.ConsultationStatus, at time.Time) error {
	filter := bson.M{"id": consultationID, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at}}
	res, err := tx.repo.consultationColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update consultation status failed: %w", classifyMongoError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("consultation %s is no longer %s: %w", consultationID, from, repository.ErrWriteConflict)
	}
	return nil
}

func (tx *mongoTx) SetSlotBooked(ctx context.Context, lawyerID string, wd time.Weekday, start string, booked bool) error {
	slotsPath := fmt.Sprintf("availability.schedule.%s.slots", models.WeekdayKey(wd))
	filter := bson.M{
		"id":                 lawyerID,
		slotsPath + ".start": start,
	}
	update := bson.M{
		"$set": bson.M{slotsPath + ".$[slot].booked": booked},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"slot.start": start}},
	})
	res, err := tx.repo.lawyerColl.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("update slot flag failed: %w", classifyMongoError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("slot %s %s of lawyer %s: %w", models.WeekdayKey(wd), start, lawyerID, repository.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) ReplaceAvailability(ctx context.Context, lawyerID string, tmpl models.AvailabilityTemplate, at time.Time) error {
	update := bson.M{"$set": bson.M{"availability": tmpl, "updatedAt": at}}
	res, err := tx.repo.lawyerColl.UpdateOne(ctx, bson.M{"id": lawyerID}, update)
	if err != nil {
		return fmt.Errorf("replace availability failed: %w", classifyMongoError(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("lawyer %s: %w", lawyerID, repository.ErrNotFound)
	}
	return nil
}

func (tx *mongoTx) InsertNotifications(ctx context.Context, notifications ...models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		docs[i] = notifications[i]
	}
	if _, err := tx.repo.notificationColl.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert notifications failed: %w", classifyMongoError(err))
	}
	return nil
}
