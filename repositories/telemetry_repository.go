package repositories

import (
	"context"
	"errors"
	"fleettrack/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TelemetryRepository struct {
	collection *mongo.Collection
}

func NewTelemetryRepository(db *mongo.Database) *TelemetryRepository {
	return &TelemetryRepository{
		collection: db.Collection("position_samples"),
	}
}

// InsertBatch persists a batch of samples atomically from the caller's point of
// view: an ordered InsertMany either inserts all rows or reports an error.
func (tr *TelemetryRepository) InsertBatch(ctx context.Context, samples []models.PositionSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(samples))
	now := time.Now()
	for i := range samples {
		samples[i].ID = primitive.NewObjectID()
		samples[i].ServerTime = now
		samples[i].CreatedAt = now
		docs = append(docs, samples[i])
	}

	result, err := tr.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return 0, err
	}

	return len(result.InsertedIDs), nil
}

// GetTripSamples returns all samples for a trip ordered by device timestamp.
func (tr *TelemetryRepository) GetTripSamples(ctx context.Context, tripID string) ([]models.PositionSample, error) {
	objectID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		return nil, errors.New("invalid trip ID")
	}

	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})
	cursor, err := tr.collection.Find(ctx, bson.M{"tripId": objectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var samples []models.PositionSample
	err = cursor.All(ctx, &samples)
	return samples, err
}

// GetVehicleRoute returns a vehicle's samples within a time range, ordered by
// device timestamp.
func (tr *TelemetryRepository) GetVehicleRoute(ctx context.Context, vehicleID string, start, end time.Time) ([]models.PositionSample, error) {
	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return nil, errors.New("invalid vehicle ID")
	}

	filter := bson.M{
		"vehicleId": objectID,
		"recordedAt": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}

	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})
	cursor, err := tr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var samples []models.PositionSample
	err = cursor.All(ctx, &samples)
	return samples, err
}

// DeleteOlderThan removes samples past the retention horizon.
func (tr *TelemetryRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := tr.collection.DeleteMany(ctx, bson.M{
		"createdAt": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
