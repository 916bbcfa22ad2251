package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleettrack/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func alertingGeofence() *models.Geofence {
	return &models.Geofence{
		ID:           primitive.NewObjectID(),
		Name:         "Depot",
		Type:         models.GeofenceTypeCircle,
		IsActive:     true,
		AlertOnEnter: true,
		AlertOnExit:  true,
		CenterLat:    -37.1708,
		CenterLng:    -72.9406,
		RadiusMeters: 50,
	}
}

func observation(vehicleID string, geofence *models.Geofence, inside bool, at time.Time) Observation {
	return Observation{
		VehicleID:  vehicleID,
		ReporterID: primitive.NewObjectID().Hex(),
		Geofence:   geofence,
		Latitude:   geofence.CenterLat,
		Longitude:  geofence.CenterLng,
		RecordedAt: at,
		IsInside:   inside,
	}
}

func TestObserveBaselineNeverEmits(t *testing.T) {
	store := newFakeGeofenceStore()
	publisher := &capturePublisher{}
	detector := NewTransitionDetector(store, publisher, 1)
	geofence := alertingGeofence()

	// A vehicle first seen inside a zone did not "enter" it.
	event, err := detector.Observe(context.Background(), observation("veh-1", geofence, true, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Empty(t, store.events)
	assert.Empty(t, publisher.events)
}

func TestObserveEnterExitCycle(t *testing.T) {
	store := newFakeGeofenceStore()
	publisher := &capturePublisher{}
	detector := NewTransitionDetector(store, publisher, 1)
	geofence := alertingGeofence()
	now := time.Now()

	ctx := context.Background()
	_, err := detector.Observe(ctx, observation("veh-1", geofence, false, now))
	require.NoError(t, err)

	event, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventEnter, event.EventType)
	assert.Equal(t, geofence.ID, event.GeofenceID)
	assert.Equal(t, "Depot", event.GeofenceName)

	// Staying inside is a no-op, not a repeat enter.
	event, err = detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(2*time.Second)))
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = detector.Observe(ctx, observation("veh-1", geofence, false, now.Add(3*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventExit, event.EventType)

	assert.Len(t, store.events, 2)
	assert.Len(t, publisher.events, 2)
}

func TestObserveExitFromInsideBaseline(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 1)
	geofence := alertingGeofence()
	now := time.Now()
	ctx := context.Background()

	// Vehicle sits at the zone center, then moves ~200m away.
	inside := Contains(geofence, geofence.CenterLat, geofence.CenterLng)
	require.True(t, inside)
	outside := Contains(geofence, geofence.CenterLat+0.0018, geofence.CenterLng)
	require.False(t, outside)

	event, err := detector.Observe(ctx, observation("veh-1", geofence, inside, now))
	require.NoError(t, err)
	assert.Nil(t, event)

	obs := observation("veh-1", geofence, outside, now.Add(time.Second))
	obs.Latitude = geofence.CenterLat + 0.0018
	event, err = detector.Observe(ctx, obs)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventExit, event.EventType)
	assert.Len(t, store.events, 1)
}

func TestObserveDebounceSuppressesJitter(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 2)
	geofence := alertingGeofence()
	now := time.Now()
	ctx := context.Background()

	_, _ = detector.Observe(ctx, observation("veh-1", geofence, false, now))

	// A single inside flicker does not commit at debounce 2.
	event, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(time.Second)))
	require.NoError(t, err)
	assert.Nil(t, event)

	// Back outside: pending change is discarded.
	event, err = detector.Observe(ctx, observation("veh-1", geofence, false, now.Add(2*time.Second)))
	require.NoError(t, err)
	assert.Nil(t, event)

	// Two consecutive inside observations commit the enter.
	event, err = detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(3*time.Second)))
	require.NoError(t, err)
	assert.Nil(t, event)

	event, err = detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(4*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventEnter, event.EventType)
	assert.Len(t, store.events, 1)
}

func TestObserveHonorsAlertFlags(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 1)
	geofence := alertingGeofence()
	geofence.AlertOnEnter = false
	now := time.Now()
	ctx := context.Background()

	_, _ = detector.Observe(ctx, observation("veh-1", geofence, false, now))

	// Enter is detected but not wanted; state still advances.
	event, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(time.Second)))
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Empty(t, store.events)

	// The following exit is wanted and references the committed inside state.
	event, err = detector.Observe(ctx, observation("veh-1", geofence, false, now.Add(2*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventExit, event.EventType)
}

func TestObservePersistFailureKeepsState(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 1)
	geofence := alertingGeofence()
	now := time.Now()
	ctx := context.Background()

	_, _ = detector.Observe(ctx, observation("veh-1", geofence, false, now))

	store.insertEventErr = errors.New("mongo down")
	_, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(time.Second)))
	require.Error(t, err)

	// Insert failed, so the side change was not committed; the next inside
	// observation retries and emits.
	store.insertEventErr = nil
	event, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(2*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.GeofenceEventEnter, event.EventType)
	assert.Len(t, store.events, 1)
}

func TestObservePairsAreIndependent(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 1)
	geofence := alertingGeofence()
	now := time.Now()
	ctx := context.Background()

	_, _ = detector.Observe(ctx, observation("veh-1", geofence, false, now))
	_, _ = detector.Observe(ctx, observation("veh-2", geofence, true, now))

	// veh-2's baseline was inside, so veh-1 entering affects only veh-1.
	event, err := detector.Observe(ctx, observation("veh-1", geofence, true, now.Add(time.Second)))
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, 2, detector.PairCount())
}

func TestPruneDropsQuietPairs(t *testing.T) {
	store := newFakeGeofenceStore()
	detector := NewTransitionDetector(store, &capturePublisher{}, 1)
	geofence := alertingGeofence()

	_, _ = detector.Observe(context.Background(), observation("veh-1", geofence, false, time.Now()))
	assert.Equal(t, 1, detector.PairCount())

	pruned := detector.Prune(time.Now().Add(-time.Hour))
	assert.Equal(t, 0, pruned)

	pruned = detector.Prune(time.Now().Add(time.Hour))
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 0, detector.PairCount())
}
