package services

import (
	"context"
	"testing"

	"fleettrack/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func float64Ptr(v float64) *float64 { return &v }

func circleRequest() models.CreateGeofenceRequest {
	return models.CreateGeofenceRequest{
		Name:         "Depot",
		Type:         models.GeofenceTypeCircle,
		AlertOnEnter: true,
		AlertOnExit:  true,
		CenterLat:    float64Ptr(-37.1708),
		CenterLng:    float64Ptr(-72.9406),
		RadiusMeters: float64Ptr(50),
	}
}

func TestCreateCircleGeofence(t *testing.T) {
	store := newFakeGeofenceStore()
	service := NewGeofenceService(store, nil)

	geofence, err := service.CreateGeofence(context.Background(), circleRequest())
	require.NoError(t, err)
	assert.False(t, geofence.ID.IsZero())
	assert.True(t, geofence.IsActive)
	assert.Equal(t, 50.0, geofence.RadiusMeters)
}

func TestCreateGeofenceGeometryValidation(t *testing.T) {
	store := newFakeGeofenceStore()
	service := NewGeofenceService(store, nil)
	ctx := context.Background()

	// Circle without a radius
	req := circleRequest()
	req.RadiusMeters = nil
	_, err := service.CreateGeofence(ctx, req)
	assert.Error(t, err)

	// Circle carrying polygon vertices
	req = circleRequest()
	req.Vertices = []models.GeoVertex{{Latitude: 0, Longitude: 0}}
	_, err = service.CreateGeofence(ctx, req)
	assert.Error(t, err)

	// Polygon with too few vertices
	_, err = service.CreateGeofence(ctx, models.CreateGeofenceRequest{
		Name: "Zone",
		Type: models.GeofenceTypePolygon,
		Vertices: []models.GeoVertex{
			{Latitude: 0, Longitude: 0},
			{Latitude: 1, Longitude: 1},
		},
	})
	assert.Error(t, err)
}

func TestUpdateGeofencePartial(t *testing.T) {
	store := newFakeGeofenceStore()
	service := NewGeofenceService(store, nil)
	ctx := context.Background()

	geofence, err := service.CreateGeofence(ctx, circleRequest())
	require.NoError(t, err)

	inactive := false
	updated, err := service.UpdateGeofence(ctx, geofence.ID.Hex(), models.UpdateGeofenceRequest{
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	// Untouched fields survive
	assert.Equal(t, "Depot", updated.Name)
	assert.Equal(t, 50.0, updated.RadiusMeters)
}

func TestDeleteGeofenceNotFound(t *testing.T) {
	service := NewGeofenceService(newFakeGeofenceStore(), nil)
	err := service.DeleteGeofence(context.Background(), "000000000000000000000000")
	assert.Error(t, err)
}

func TestCheckPointAgainstActiveSet(t *testing.T) {
	store := newFakeGeofenceStore()
	service := NewGeofenceService(store, nil)
	ctx := context.Background()

	depot, err := service.CreateGeofence(ctx, circleRequest())
	require.NoError(t, err)

	inactive := false
	offReq := circleRequest()
	offReq.Name = "Disabled"
	offReq.IsActive = &inactive
	_, err = service.CreateGeofence(ctx, offReq)
	require.NoError(t, err)

	// Inactive geofences are excluded from the check entirely.
	results, err := service.CheckPoint(ctx, -37.1708, -72.9406)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, depot.ID.Hex(), results[0].GeofenceID)
	assert.True(t, results[0].IsInside)

	// A point far away reports outside.
	results, err = service.CheckPoint(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsInside)
}

func TestCheckPointRejectsBadCoordinates(t *testing.T) {
	service := NewGeofenceService(newFakeGeofenceStore(), nil)
	_, err := service.CheckPoint(context.Background(), 91, 0)
	assert.Error(t, err)
}

func TestContainsDispatch(t *testing.T) {
	circle := &models.Geofence{
		Type:         models.GeofenceTypeCircle,
		CenterLat:    -37.1708,
		CenterLng:    -72.9406,
		RadiusMeters: 50,
	}
	assert.True(t, Contains(circle, -37.1708, -72.9406))
	assert.False(t, Contains(circle, -37.18, -72.95))

	polygon := &models.Geofence{
		Type: models.GeofenceTypePolygon,
		Vertices: []models.GeoVertex{
			{Latitude: 0, Longitude: 0},
			{Latitude: 0, Longitude: 10},
			{Latitude: 10, Longitude: 10},
			{Latitude: 10, Longitude: 0},
		},
	}
	assert.True(t, Contains(polygon, 5, 5))
	assert.False(t, Contains(polygon, 20, 5))

	unknown := &models.Geofence{Type: "square"}
	assert.False(t, Contains(unknown, 0, 0))
}

func TestGetEventsFillsMissingZoneName(t *testing.T) {
	store := newFakeGeofenceStore()
	service := NewGeofenceService(store, nil)
	ctx := context.Background()

	named := &models.GeofenceEvent{
		GeofenceName: "Depot",
		VehicleID:    primitive.NewObjectID(),
		EventType:    models.GeofenceEventEnter,
	}
	require.NoError(t, store.InsertEvent(ctx, named))

	nameless := &models.GeofenceEvent{
		VehicleID: primitive.NewObjectID(),
		EventType: models.GeofenceEventExit,
	}
	require.NoError(t, store.InsertEvent(ctx, nameless))

	events, err := service.GetEvents(ctx, models.GeofenceEventsRequest{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Depot", events[0].GeofenceName)
	assert.Equal(t, "unknown", events[1].GeofenceName)
}
