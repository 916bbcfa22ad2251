package services

import (
	"context"
	"fleettrack/models"
	"time"
)

// Persistence boundaries. The mongo-backed repositories satisfy these; tests
// substitute in-memory fakes. Everything is keyed by opaque hex IDs, never by
// tenant or table names.

type SampleStore interface {
	InsertBatch(ctx context.Context, samples []models.PositionSample) (int, error)
	GetTripSamples(ctx context.Context, tripID string) ([]models.PositionSample, error)
	GetVehicleRoute(ctx context.Context, vehicleID string, start, end time.Time) ([]models.PositionSample, error)
}

type TripStore interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, tripID string) (*models.Trip, error)
	GetActiveByVehicle(ctx context.Context, vehicleID string) (*models.Trip, error)
	UpdateStats(ctx context.Context, tripID string, totalDistanceKm, avgSpeed, maxSpeed float64) error
	Close(ctx context.Context, tripID, status string, endOdometerKm *float64) error
}

type GeofenceStore interface {
	Create(ctx context.Context, geofence *models.Geofence) error
	GetByID(ctx context.Context, geofenceID string) (*models.Geofence, error)
	Update(ctx context.Context, geofence *models.Geofence) error
	Delete(ctx context.Context, geofenceID string) error
	List(ctx context.Context) ([]models.Geofence, error)
	ListActive(ctx context.Context) ([]models.Geofence, error)
	GetEvents(ctx context.Context, req models.GeofenceEventsRequest) ([]models.GeofenceEvent, error)
	InsertEvent(ctx context.Context, event *models.GeofenceEvent) error
}

// EvaluationJob asks the geofence pipeline to evaluate one position against the
// active geofence set.
type EvaluationJob struct {
	VehicleID  string
	ReporterID string
	TripID     string
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// EvaluationSink accepts evaluation jobs from the ingest path. The geofence
// worker is the production implementation; a full queue is reported as an error
// but never fails the ingest that submitted the job.
type EvaluationSink interface {
	SubmitEvaluation(job EvaluationJob) error
}
