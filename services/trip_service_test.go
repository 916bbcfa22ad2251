package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"fleettrack/models"
	"fleettrack/repositories"
	"fleettrack/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTripServiceForTest() (*TripService, *fakeTripStore, *fakeSampleStore, *LivePositionCache) {
	trips := newFakeTripStore()
	samples := &fakeSampleStore{}
	cache := NewLivePositionCache()
	return NewTripService(trips, samples, cache, nil), trips, samples, cache
}

func startRequest() models.StartTripRequest {
	return models.StartTripRequest{
		VehicleID:       primitive.NewObjectID().Hex(),
		DriverID:        primitive.NewObjectID().Hex(),
		StartOdometerKm: 12000,
	}
}

func TestStartTrip(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()

	trip, err := service.StartTrip(context.Background(), startRequest())
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, trip.Status)
	assert.Equal(t, 12000.0, trip.StartOdometerKm)
	assert.False(t, trip.ID.IsZero())
	assert.Nil(t, trip.EndTime)
}

func TestStartTripRejectsSecondActive(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()
	req := startRequest()
	ctx := context.Background()

	_, err := service.StartTrip(ctx, req)
	require.NoError(t, err)

	_, err = service.StartTrip(ctx, req)
	assert.Error(t, err)
}

func TestStartTripValidation(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()
	ctx := context.Background()

	req := startRequest()
	req.VehicleID = "not-an-id"
	_, err := service.StartTrip(ctx, req)
	assert.Error(t, err)

	req = startRequest()
	req.StartOdometerKm = -1
	_, err = service.StartTrip(ctx, req)
	assert.Error(t, err)
}

func TestEndTrip(t *testing.T) {
	service, _, samples, cache := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	now := time.Now()
	speed := 40.0
	samples.samples = []models.PositionSample{
		{TripID: trip.ID, VehicleID: trip.VehicleID, Latitude: 0, Longitude: 0, Speed: &speed, RecordedAt: now},
		{TripID: trip.ID, VehicleID: trip.VehicleID, Latitude: 1, Longitude: 0, Speed: &speed, RecordedAt: now.Add(time.Hour)},
	}
	cache.Update(models.LivePositionEntry{VehicleID: trip.VehicleID.Hex(), RecordedAt: now})

	ended, err := service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12150})
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, ended.Status)
	require.NotNil(t, ended.EndOdometerKm)
	assert.Equal(t, 12150.0, *ended.EndOdometerKm)
	assert.NotNil(t, ended.EndTime)

	// Final recompute picked up the samples.
	assert.InDelta(t, 111.2, ended.TotalDistanceKm, 0.5)
	assert.Equal(t, 40.0, ended.MaxSpeed)

	// Closing the trip clears the vehicle from the live board.
	_, ok := cache.Get(trip.VehicleID.Hex())
	assert.False(t, ok)
}

func TestEndTripOdometerMustNotRegress(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	_, err = service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 11000})
	assert.Error(t, err)

	// Still active after the rejected end.
	got, err := service.GetTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, got.Status)
}

func TestEndTripAlreadyClosed(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	_, err = service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12001})
	require.NoError(t, err)

	_, err = service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12002})
	assert.Error(t, err)
}

func TestCancelTrip(t *testing.T) {
	service, _, _, cache := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)
	cache.Update(models.LivePositionEntry{VehicleID: trip.VehicleID.Hex(), RecordedAt: time.Now()})

	cancelled, err := service.CancelTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.EndOdometerKm)

	_, ok := cache.Get(trip.VehicleID.Hex())
	assert.False(t, ok)

	// A cancelled trip can be started again for the same vehicle.
	_, err = service.StartTrip(ctx, models.StartTripRequest{
		VehicleID:       trip.VehicleID.Hex(),
		DriverID:        trip.DriverID.Hex(),
		StartOdometerKm: 12000,
	})
	assert.NoError(t, err)
}

func TestGetTripNotFound(t *testing.T) {
	service, _, _, _ := newTripServiceForTest()

	_, err := service.GetTrip(context.Background(), primitive.NewObjectID().Hex())
	assert.Error(t, err)

	_, err = service.GetTrip(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestGetTripStats(t *testing.T) {
	service, trips, samples, _ := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	require.NoError(t, trips.UpdateStats(ctx, trip.ID.Hex(), 42.5, 38, 60))
	samples.samples = []models.PositionSample{
		{TripID: trip.ID, RecordedAt: time.Now()},
		{TripID: trip.ID, RecordedAt: time.Now()},
	}

	stats, err := service.GetTripStats(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, trip.ID.Hex(), stats.TripID)
	assert.Equal(t, 42.5, stats.TotalDistanceKm)
	assert.Equal(t, 38.0, stats.AvgSpeed)
	assert.Equal(t, 60.0, stats.MaxSpeed)
	assert.Equal(t, 2, stats.SampleCount)
}

func TestEndTripSerializesWithIngestRecompute(t *testing.T) {
	trips := newFakeTripStore()
	samples := &fakeSampleStore{}
	cache := NewLivePositionCache()
	locks := NewTripLocks()
	service := NewTripService(trips, samples, cache, locks)
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	// Hold the trip's recompute lock the way an in-flight batch would; the
	// close must wait for it instead of writing stale aggregates.
	lock := locks.For(trip.ID.Hex())
	lock.Lock()

	done := make(chan error, 1)
	go func() {
		_, endErr := service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12100})
		done <- endErr
	}()

	select {
	case <-done:
		t.Fatal("EndTrip completed without waiting for the trip's recompute lock")
	case <-time.After(50 * time.Millisecond):
	}

	lock.Unlock()
	require.NoError(t, <-done)

	got, err := service.GetTrip(ctx, trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, got.Status)
}

func TestEndTripLostCloseRaceIsConflict(t *testing.T) {
	service, trips, _, _ := newTripServiceForTest()
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	// Another close slips in between the active check and this close.
	trips.closeErr = repositories.ErrTripNotActive

	_, err = service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12100})
	require.Error(t, err)

	var serviceErr utils.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, http.StatusConflict, serviceErr.StatusCode)
}

func TestTripLocksReleasedOnClose(t *testing.T) {
	trips := newFakeTripStore()
	locks := NewTripLocks()
	service := NewTripService(trips, &fakeSampleStore{}, NewLivePositionCache(), locks)
	ctx := context.Background()

	trip, err := service.StartTrip(ctx, startRequest())
	require.NoError(t, err)

	_, err = service.EndTrip(ctx, trip.ID.Hex(), models.EndTripRequest{EndOdometerKm: 12100})
	require.NoError(t, err)
	assert.Equal(t, 0, locks.Len())

	cancelledTrip, err := service.StartTrip(ctx, models.StartTripRequest{
		VehicleID:       primitive.NewObjectID().Hex(),
		DriverID:        primitive.NewObjectID().Hex(),
		StartOdometerKm: 500,
	})
	require.NoError(t, err)

	_, err = service.CancelTrip(ctx, cancelledTrip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, locks.Len())
}
