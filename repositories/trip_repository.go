package repositories

import (
	"context"
	"errors"
	"fleettrack/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrTripNotFound  = errors.New("trip not found")
	ErrTripNotActive = errors.New("trip is not active")
)

type TripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{
		collection: db.Collection("trips"),
	}
}

func (tr *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = primitive.NewObjectID()
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	_, err := tr.collection.InsertOne(ctx, trip)
	if mongo.IsDuplicateKeyError(err) {
		// Partial unique index on active trips per vehicle
		return errors.New("vehicle already has an active trip")
	}
	return err
}

func (tr *TripRepository) GetByID(ctx context.Context, tripID string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		return nil, errors.New("invalid trip ID")
	}

	var trip models.Trip
	err = tr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	return &trip, nil
}

// GetActiveByVehicle returns the vehicle's single active trip, or ErrTripNotFound.
func (tr *TripRepository) GetActiveByVehicle(ctx context.Context, vehicleID string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		return nil, errors.New("invalid vehicle ID")
	}

	var trip models.Trip
	err = tr.collection.FindOne(ctx, bson.M{
		"vehicleId": objectID,
		"status":    models.TripStatusActive,
	}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	return &trip, nil
}

// UpdateStats writes the recomputed aggregates back onto the trip. Only active
// trips match; once a trip is closed its aggregates are final and an in-flight
// recompute must not touch them. Returns ErrTripNotActive when nothing matched.
func (tr *TripRepository) UpdateStats(ctx context.Context, tripID string, totalDistanceKm, avgSpeed, maxSpeed float64) error {
	objectID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		return errors.New("invalid trip ID")
	}

	update := bson.M{
		"$set": bson.M{
			"totalDistanceKm": totalDistanceKm,
			"avgSpeed":        avgSpeed,
			"maxSpeed":        maxSpeed,
			"updatedAt":       time.Now(),
		},
	}

	result, err := tr.collection.UpdateOne(ctx, bson.M{
		"_id":    objectID,
		"status": models.TripStatusActive,
	}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTripNotActive
	}
	return nil
}

// Close transitions an active trip to a terminal status. The status filter in the
// update guarantees terminal states stay final even under concurrent closes.
func (tr *TripRepository) Close(ctx context.Context, tripID, status string, endOdometerKm *float64) error {
	objectID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		return errors.New("invalid trip ID")
	}

	now := time.Now()
	set := bson.M{
		"status":    status,
		"endTime":   now,
		"updatedAt": now,
	}
	if endOdometerKm != nil {
		set["endOdometerKm"] = *endOdometerKm
	}

	result, err := tr.collection.UpdateOne(ctx, bson.M{
		"_id":    objectID,
		"status": models.TripStatusActive,
	}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrTripNotActive
	}
	return nil
}

// ListActiveVehicleIDs returns the vehicle IDs of all active trips, used to
// reconcile the live position cache.
func (tr *TripRepository) ListActiveVehicleIDs(ctx context.Context) (map[string]bool, error) {
	cursor, err := tr.collection.Find(ctx, bson.M{"status": models.TripStatusActive})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(trips))
	for _, trip := range trips {
		ids[trip.VehicleID.Hex()] = true
	}
	return ids, nil
}
