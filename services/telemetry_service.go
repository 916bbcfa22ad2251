package services

import (
	"context"
	"errors"
	"fleettrack/models"
	"fleettrack/repositories"
	"fleettrack/utils"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// TelemetryService ingests device sample batches: validate, persist, recompute
// trip aggregates, refresh the live cache, and hand the batch tail to the
// geofence pipeline.
//
// Batch validation is all-or-nothing: one malformed point rejects the whole
// batch and nothing is persisted. Devices retry the full upload, which the
// cache's stale-write guard makes harmless.
type TelemetryService struct {
	sampleStore  SampleStore
	tripStore    TripStore
	aggregator   *TripAggregator
	cache        *LivePositionCache
	publisher    EventPublisher
	sink         EvaluationSink
	maxBatchSize int

	// Serializes aggregate recomputation per trip; concurrent batches for the
	// same trip would otherwise overwrite each other with stale totals. Shared
	// with TripService so the close-time recompute serializes too.
	locks *TripLocks
}

func NewTelemetryService(
	sampleStore SampleStore,
	tripStore TripStore,
	cache *LivePositionCache,
	publisher EventPublisher,
	sink EvaluationSink,
	locks *TripLocks,
	maxBatchSize int,
) *TelemetryService {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	if locks == nil {
		locks = NewTripLocks()
	}
	return &TelemetryService{
		sampleStore:  sampleStore,
		tripStore:    tripStore,
		aggregator:   NewTripAggregator(),
		cache:        cache,
		publisher:    publisher,
		sink:         sink,
		maxBatchSize: maxBatchSize,
		locks:        locks,
	}
}

func (ts *TelemetryService) IngestBatch(ctx context.Context, reporterID string, req models.IngestBatchRequest) (*models.IngestBatchResponse, error) {
	if !utils.IsValidObjectID(req.VehicleID) {
		return nil, utils.NewValidationError("vehicleId", "vehicleId must be a valid object ID")
	}
	if !utils.IsValidObjectID(reporterID) {
		return nil, utils.NewValidationError("reporterId", "reporterId must be a valid object ID")
	}
	if len(req.Points) == 0 {
		return nil, utils.NewEmptyBatchError()
	}
	if len(req.Points) > ts.maxBatchSize {
		return nil, utils.NewBatchTooLargeError(ts.maxBatchSize)
	}

	trip, err := ts.resolveTrip(ctx, req.VehicleID, req.TripID)
	if err != nil {
		return nil, err
	}

	samples, err := ts.buildSamples(req, trip, reporterID)
	if err != nil {
		return nil, err
	}

	inserted, err := ts.sampleStore.InsertBatch(ctx, samples)
	if err != nil {
		return nil, utils.NewDatabaseError("insert samples", err)
	}

	tripID := ""
	if trip != nil {
		tripID = trip.ID.Hex()
		if err := ts.recomputeTripStats(ctx, tripID); err != nil {
			return nil, err
		}
	}

	ts.publishLatest(samples, tripID, reporterID)

	return &models.IngestBatchResponse{
		InsertedCount: inserted,
		TripID:        tripID,
	}, nil
}

// GetLivePositions returns the live cache snapshot.
func (ts *TelemetryService) GetLivePositions() []models.LivePositionEntry {
	return ts.cache.Snapshot()
}

// GetVehicleRoute returns the ordered samples for a vehicle in a time range,
// plus the vehicle's active trip aggregates when one exists.
func (ts *TelemetryService) GetVehicleRoute(ctx context.Context, vehicleID string, start, end time.Time) (*models.RouteResponse, error) {
	if !utils.IsValidObjectID(vehicleID) {
		return nil, utils.NewValidationError("vehicleId", "vehicleId must be a valid object ID")
	}
	if end.Before(start) {
		return nil, utils.NewValidationError("endTime", "end time must be after start time")
	}

	samples, err := ts.sampleStore.GetVehicleRoute(ctx, vehicleID, start, end)
	if err != nil {
		return nil, utils.NewDatabaseError("query vehicle route", err)
	}

	resp := &models.RouteResponse{
		VehicleID: vehicleID,
		Samples:   samples,
	}

	trip, err := ts.tripStore.GetActiveByVehicle(ctx, vehicleID)
	if err == nil {
		resp.Trip = trip
	} else if !errors.Is(err, repositories.ErrTripNotFound) {
		return nil, utils.NewDatabaseError("query active trip", err)
	}

	return resp, nil
}

// resolveTrip maps the optional trip reference onto an active trip. A stated
// tripId that does not exist is a not-found condition, not a validation failure.
func (ts *TelemetryService) resolveTrip(ctx context.Context, vehicleID, tripID string) (*models.Trip, error) {
	if tripID != "" {
		if !utils.IsValidObjectID(tripID) {
			return nil, utils.NewValidationError("tripId", "tripId must be a valid object ID")
		}

		trip, err := ts.tripStore.GetByID(ctx, tripID)
		if err != nil {
			if errors.Is(err, repositories.ErrTripNotFound) {
				return nil, utils.NewTripNotFoundError()
			}
			return nil, utils.NewDatabaseError("get trip", err)
		}
		if trip.VehicleID.Hex() != vehicleID {
			return nil, utils.NewValidationError("tripId", "trip does not belong to this vehicle")
		}
		if trip.IsTerminal() {
			return nil, utils.NewTripClosedError()
		}
		return trip, nil
	}

	// No trip stated: attach to the vehicle's active trip if it has one.
	trip, err := ts.tripStore.GetActiveByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			return nil, nil
		}
		return nil, utils.NewDatabaseError("get active trip", err)
	}
	return trip, nil
}

func (ts *TelemetryService) buildSamples(req models.IngestBatchRequest, trip *models.Trip, reporterID string) ([]models.PositionSample, error) {
	samples := make([]models.PositionSample, 0, len(req.Points))

	for i, point := range req.Points {
		if !utils.IsValidCoordinate(point.Latitude, point.Longitude) {
			return nil, utils.NewValidationError(
				fmt.Sprintf("points[%d]", i), "latitude or longitude out of range")
		}
		if point.Speed != nil && *point.Speed < 0 {
			return nil, utils.NewValidationError(
				fmt.Sprintf("points[%d].speed", i), "speed must not be negative")
		}
		if point.Heading != nil && (*point.Heading < 0 || *point.Heading > 360) {
			return nil, utils.NewValidationError(
				fmt.Sprintf("points[%d].heading", i), "heading must be between 0 and 360")
		}

		recordedAt, err := time.Parse(time.RFC3339, point.RecordedAt)
		if err != nil {
			return nil, utils.NewValidationError(
				fmt.Sprintf("points[%d].recordedAt", i), "recordedAt must be an RFC3339 timestamp")
		}

		sample := models.PositionSample{
			VehicleID:  utils.ObjectIDFromHex(req.VehicleID),
			ReporterID: utils.ObjectIDFromHex(reporterID),
			Latitude:   point.Latitude,
			Longitude:  point.Longitude,
			Altitude:   point.Altitude,
			Speed:      point.Speed,
			Heading:    point.Heading,
			Accuracy:   point.Accuracy,
			RecordedAt: recordedAt,
		}
		if trip != nil {
			sample.TripID = trip.ID
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

func (ts *TelemetryService) recomputeTripStats(ctx context.Context, tripID string) error {
	lock := ts.locks.For(tripID)
	lock.Lock()
	defer lock.Unlock()

	samples, err := ts.sampleStore.GetTripSamples(ctx, tripID)
	if err != nil {
		return utils.NewDatabaseError("get trip samples", err)
	}

	stats := ts.aggregator.Compute(samples)

	if err := ts.tripStore.UpdateStats(ctx, tripID, stats.TotalDistanceKm, stats.AvgSpeed, stats.MaxSpeed); err != nil {
		// The trip was closed while this batch was in flight; the close-time
		// recompute owns the final aggregates.
		if errors.Is(err, repositories.ErrTripNotActive) {
			logrus.Debugf("Skipping stats recompute for closed trip %s", tripID)
			return nil
		}
		return utils.NewDatabaseError("update trip stats", err)
	}

	return nil
}

// publishLatest pushes the newest sample of the batch (by device timestamp) into
// the live cache, notifies subscribers, and queues geofence evaluation. All of
// this is downstream of a successful insert and never fails the ingest.
func (ts *TelemetryService) publishLatest(samples []models.PositionSample, tripID, reporterID string) {
	latest := samples[0]
	for _, sample := range samples[1:] {
		if sample.RecordedAt.After(latest.RecordedAt) {
			latest = sample
		}
	}

	entry := models.LivePositionEntry{
		VehicleID:  latest.VehicleID.Hex(),
		TripID:     tripID,
		ReporterID: reporterID,
		Latitude:   latest.Latitude,
		Longitude:  latest.Longitude,
		RecordedAt: latest.RecordedAt,
	}
	if latest.Speed != nil {
		entry.Speed = *latest.Speed
	}
	if latest.Heading != nil {
		entry.Heading = *latest.Heading
	}
	entry.Status = MotionStatus(entry.Speed)

	// The live board shows vehicles on an active trip only; tripless samples
	// are still stored, published, and evaluated, but never surface as live.
	if tripID != "" {
		ts.cache.Update(entry)
	}
	ts.publisher.PublishPosition(entry)

	if ts.sink == nil {
		return
	}
	err := ts.sink.SubmitEvaluation(EvaluationJob{
		VehicleID:  entry.VehicleID,
		ReporterID: reporterID,
		TripID:     tripID,
		Latitude:   entry.Latitude,
		Longitude:  entry.Longitude,
		RecordedAt: entry.RecordedAt,
	})
	if err != nil {
		logrus.Warnf("Failed to queue geofence evaluation for vehicle %s: %v", entry.VehicleID, err)
	}
}

