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

var ErrGeofenceNotFound = errors.New("geofence not found")

type GeofenceRepository struct {
	collection      *mongo.Collection
	eventCollection *mongo.Collection
}

func NewGeofenceRepository(db *mongo.Database) *GeofenceRepository {
	return &GeofenceRepository{
		collection:      db.Collection("geofences"),
		eventCollection: db.Collection("geofence_events"),
	}
}

// ==================== DEFINITION METHODS ====================

func (gr *GeofenceRepository) Create(ctx context.Context, geofence *models.Geofence) error {
	geofence.ID = primitive.NewObjectID()
	geofence.CreatedAt = time.Now()
	geofence.UpdatedAt = geofence.CreatedAt

	_, err := gr.collection.InsertOne(ctx, geofence)
	return err
}

func (gr *GeofenceRepository) GetByID(ctx context.Context, geofenceID string) (*models.Geofence, error) {
	objectID, err := primitive.ObjectIDFromHex(geofenceID)
	if err != nil {
		return nil, errors.New("invalid geofence ID")
	}

	var geofence models.Geofence
	err = gr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&geofence)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrGeofenceNotFound
		}
		return nil, err
	}

	return &geofence, nil
}

func (gr *GeofenceRepository) Update(ctx context.Context, geofence *models.Geofence) error {
	geofence.UpdatedAt = time.Now()

	result, err := gr.collection.ReplaceOne(ctx, bson.M{"_id": geofence.ID}, geofence)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrGeofenceNotFound
	}
	return nil
}

// Delete is a hard delete. Historical geofence events keep the definition's name
// denormalized, so they remain meaningful after the definition is gone.
func (gr *GeofenceRepository) Delete(ctx context.Context, geofenceID string) error {
	objectID, err := primitive.ObjectIDFromHex(geofenceID)
	if err != nil {
		return errors.New("invalid geofence ID")
	}

	result, err := gr.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrGeofenceNotFound
	}
	return nil
}

func (gr *GeofenceRepository) List(ctx context.Context) ([]models.Geofence, error) {
	return gr.find(ctx, bson.M{})
}

// ListActive returns all geofences eligible for evaluation.
func (gr *GeofenceRepository) ListActive(ctx context.Context) ([]models.Geofence, error) {
	return gr.find(ctx, bson.M{"isActive": true})
}

func (gr *GeofenceRepository) find(ctx context.Context, filter bson.M) ([]models.Geofence, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := gr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var geofences []models.Geofence
	err = cursor.All(ctx, &geofences)
	return geofences, err
}

// ==================== EVENT METHODS ====================

func (gr *GeofenceRepository) InsertEvent(ctx context.Context, event *models.GeofenceEvent) error {
	event.ID = primitive.NewObjectID()
	event.CreatedAt = time.Now()

	_, err := gr.eventCollection.InsertOne(ctx, event)
	return err
}

func (gr *GeofenceRepository) GetEvents(ctx context.Context, req models.GeofenceEventsRequest) ([]models.GeofenceEvent, error) {
	filter := bson.M{}

	if req.VehicleID != "" {
		objectID, err := primitive.ObjectIDFromHex(req.VehicleID)
		if err != nil {
			return nil, errors.New("invalid vehicle ID")
		}
		filter["vehicleId"] = objectID
	}

	if req.StartTime != nil || req.EndTime != nil {
		timeFilter := bson.M{}
		if req.StartTime != nil {
			timeFilter["$gte"] = *req.StartTime
		}
		if req.EndTime != nil {
			timeFilter["$lte"] = *req.EndTime
		}
		filter["recordedAt"] = timeFilter
	}

	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "recordedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := gr.eventCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []models.GeofenceEvent
	err = cursor.All(ctx, &events)
	return events, err
}
