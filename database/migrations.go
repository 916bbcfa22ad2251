package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
}

// migrationRecord tracks applied migrations
type migrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"appliedAt"`
}

// migrations contains all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create position samples collection with indexes",
		Up:          createPositionSamplesCollection,
	},
	{
		Version:     2,
		Description: "Create trips collection with indexes",
		Up:          createTripsCollection,
	},
	{
		Version:     3,
		Description: "Create geofences collection with indexes",
		Up:          createGeofencesCollection,
	},
	{
		Version:     4,
		Description: "Create geofence events collection with indexes",
		Up:          createGeofenceEventsCollection,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	migrationsCol := db.Collection("migrations")

	currentVersion := getCurrentMigrationVersion(ctx, migrationsCol)
	logrus.Infof("📋 Current migration version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		logrus.Infof("🔄 Running migration %d: %s", migration.Version, migration.Description)

		if err := migration.Up(db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err := migrationsCol.InsertOne(ctx, migrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		logrus.Infof("✅ Migration %d completed", migration.Version)
	}

	return nil
}

// getCurrentMigrationVersion returns the current migration version
func getCurrentMigrationVersion(ctx context.Context, col *mongo.Collection) int {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var record migrationRecord
	err := col.FindOne(ctx, bson.D{}, opts).Decode(&record)
	if err != nil {
		return 0 // No migrations applied yet
	}
	return record.Version
}

// Individual migration functions

func createPositionSamplesCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("position_samples")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tripId", Value: 1}, {Key: "recordedAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "recordedAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createTripsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("trips")

	indexes := []mongo.IndexModel{
		{
			// One active trip per vehicle
			Keys: bson.D{{Key: "vehicleId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_active_trip_per_vehicle").
				SetPartialFilterExpression(bson.M{"status": "active"}),
		},
		{
			Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "startTime", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createGeofencesCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("geofences")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "isActive", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}

func createGeofenceEventsCollection(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	col := db.Collection("geofence_events")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "recordedAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "geofenceId", Value: 1}, {Key: "recordedAt", Value: -1}},
		},
	}

	_, err := col.Indexes().CreateMany(ctx, indexes)
	return err
}
