package services

import (
	"context"
	"errors"
	"fleettrack/models"
	"fleettrack/repositories"
	"fleettrack/utils"
	"strings"
	"time"
)

// TripService owns the trip lifecycle: start, end, cancel, read. The one-active-
// trip-per-vehicle rule is enforced twice, by a pre-check here and by the partial
// unique index underneath, so a racing second start always loses.
type TripService struct {
	tripStore   TripStore
	sampleStore SampleStore
	aggregator  *TripAggregator
	cache       *LivePositionCache
	validator   *utils.ValidationService

	// Shared with TelemetryService; the final recompute at close time must
	// serialize with batch-ingest recomputes for the same trip.
	locks *TripLocks
}

func NewTripService(tripStore TripStore, sampleStore SampleStore, cache *LivePositionCache, locks *TripLocks) *TripService {
	if locks == nil {
		locks = NewTripLocks()
	}
	return &TripService{
		tripStore:   tripStore,
		sampleStore: sampleStore,
		aggregator:  NewTripAggregator(),
		cache:       cache,
		validator:   utils.NewValidationService(),
		locks:       locks,
	}
}

func (s *TripService) StartTrip(ctx context.Context, req models.StartTripRequest) (*models.Trip, error) {
	if verrs := s.validator.ValidateStruct(req); len(verrs) > 0 {
		return nil, utils.NewValidationError(verrs[0].Field, verrs[0].Message)
	}
	if !utils.IsValidObjectID(req.VehicleID) {
		return nil, utils.NewValidationError("vehicleId", "vehicleId must be a valid object ID")
	}
	if !utils.IsValidObjectID(req.DriverID) {
		return nil, utils.NewValidationError("driverId", "driverId must be a valid object ID")
	}

	_, err := s.tripStore.GetActiveByVehicle(ctx, req.VehicleID)
	if err == nil {
		return nil, utils.NewTripAlreadyActiveError()
	}
	if !errors.Is(err, repositories.ErrTripNotFound) {
		return nil, utils.NewDatabaseError("check active trip", err)
	}

	trip := &models.Trip{
		VehicleID:       utils.ObjectIDFromHex(req.VehicleID),
		DriverID:        utils.ObjectIDFromHex(req.DriverID),
		StartOdometerKm: req.StartOdometerKm,
		StartTime:       time.Now().UTC(),
		Status:          models.TripStatusActive,
	}

	if err := s.tripStore.Create(ctx, trip); err != nil {
		// Lost the race against another start; the index caught it.
		if strings.Contains(err.Error(), "active trip") {
			return nil, utils.NewTripAlreadyActiveError()
		}
		return nil, utils.NewDatabaseError("create trip", err)
	}

	return trip, nil
}

// EndTrip completes an active trip. Aggregates are recomputed one final time so
// a batch that landed between the last recompute and the close is not lost.
func (s *TripService) EndTrip(ctx context.Context, tripID string, req models.EndTripRequest) (*models.Trip, error) {
	trip, err := s.getActiveTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if req.EndOdometerKm < trip.StartOdometerKm {
		return nil, utils.NewValidationError("endOdometerKm", "end odometer must not be less than start odometer")
	}

	endOdo := req.EndOdometerKm
	if err := s.closeTrip(ctx, trip, models.TripStatusCompleted, &endOdo); err != nil {
		return nil, err
	}

	return s.getTripOrError(ctx, tripID)
}

// CancelTrip discards an active trip without odometer reconciliation. Samples
// already attached to the trip stay attached; retention cleans them up.
func (s *TripService) CancelTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.getActiveTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if err := s.closeTrip(ctx, trip, models.TripStatusCancelled, nil); err != nil {
		return nil, err
	}

	return s.getTripOrError(ctx, tripID)
}

// closeTrip recomputes aggregates one final time and transitions the trip to a
// terminal status, all under the trip's recompute lock so a concurrent batch
// cannot interleave between the final read and the close. The status filter in
// the store keeps a lost close race from mutating the winner's result.
func (s *TripService) closeTrip(ctx context.Context, trip *models.Trip, status string, endOdometerKm *float64) error {
	tripID := trip.ID.Hex()

	lock := s.locks.For(tripID)
	lock.Lock()
	defer lock.Unlock()

	if status == models.TripStatusCompleted {
		if err := s.refreshStats(ctx, tripID); err != nil {
			return err
		}
	}

	if err := s.tripStore.Close(ctx, tripID, status, endOdometerKm); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTripNotActive):
			return utils.NewTripClosedError()
		case errors.Is(err, repositories.ErrTripNotFound):
			return utils.NewTripNotFoundError()
		}
		return utils.NewDatabaseError("close trip", err)
	}

	s.cache.Evict(trip.VehicleID.Hex())
	s.locks.Forget(tripID)

	return nil
}

func (s *TripService) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	if !utils.IsValidObjectID(tripID) {
		return nil, utils.NewValidationError("tripId", "tripId must be a valid object ID")
	}
	return s.getTripOrError(ctx, tripID)
}

func (s *TripService) GetTripStats(ctx context.Context, tripID string) (*models.TripStatsResponse, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	samples, err := s.sampleStore.GetTripSamples(ctx, tripID)
	if err != nil {
		return nil, utils.NewDatabaseError("get trip samples", err)
	}

	return &models.TripStatsResponse{
		TripID:          trip.ID.Hex(),
		TotalDistanceKm: trip.TotalDistanceKm,
		AvgSpeed:        trip.AvgSpeed,
		MaxSpeed:        trip.MaxSpeed,
		SampleCount:     len(samples),
	}, nil
}

func (s *TripService) getActiveTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	if !utils.IsValidObjectID(tripID) {
		return nil, utils.NewValidationError("tripId", "tripId must be a valid object ID")
	}
	trip, err := s.getTripOrError(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsTerminal() {
		return nil, utils.NewTripClosedError()
	}
	return trip, nil
}

func (s *TripService) getTripOrError(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.tripStore.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repositories.ErrTripNotFound) {
			return nil, utils.NewTripNotFoundError()
		}
		return nil, utils.NewDatabaseError("get trip", err)
	}
	return trip, nil
}

// refreshStats is called with the trip's recompute lock held.
func (s *TripService) refreshStats(ctx context.Context, tripID string) error {
	samples, err := s.sampleStore.GetTripSamples(ctx, tripID)
	if err != nil {
		return utils.NewDatabaseError("get trip samples", err)
	}

	stats := s.aggregator.Compute(samples)
	if err := s.tripStore.UpdateStats(ctx, tripID, stats.TotalDistanceKm, stats.AvgSpeed, stats.MaxSpeed); err != nil {
		// Another close won the race between our active check and this write.
		if errors.Is(err, repositories.ErrTripNotActive) {
			return utils.NewTripClosedError()
		}
		return utils.NewDatabaseError("update trip stats", err)
	}
	return nil
}
