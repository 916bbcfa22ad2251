package services

import (
	"context"
	"fleettrack/models"
	"fleettrack/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// GeofenceChangedChannel is the redis pub/sub channel nudged after any definition
// change so evaluation workers refresh their cached geofence set promptly.
const GeofenceChangedChannel = "fleettrack:geofences:changed"

type GeofenceService struct {
	geofenceStore GeofenceStore
	redis         *redis.Client
	validator     *utils.ValidationService
}

func NewGeofenceService(geofenceStore GeofenceStore, redisClient *redis.Client) *GeofenceService {
	return &GeofenceService{
		geofenceStore: geofenceStore,
		redis:         redisClient,
		validator:     utils.NewValidationService(),
	}
}

// ==================== DEFINITION CRUD ====================

func (gs *GeofenceService) CreateGeofence(ctx context.Context, req models.CreateGeofenceRequest) (*models.Geofence, error) {
	if validationErrors := gs.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewValidationError(validationErrors[0].Field, validationErrors[0].Message)
	}

	geofence := models.Geofence{
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		IsActive:     true,
		AlertOnEnter: req.AlertOnEnter,
		AlertOnExit:  req.AlertOnExit,
		Vertices:     req.Vertices,
	}
	if req.IsActive != nil {
		geofence.IsActive = *req.IsActive
	}
	if req.CenterLat != nil {
		geofence.CenterLat = *req.CenterLat
	}
	if req.CenterLng != nil {
		geofence.CenterLng = *req.CenterLng
	}
	if req.RadiusMeters != nil {
		geofence.RadiusMeters = *req.RadiusMeters
	}

	if err := validateGeometry(&geofence); err != nil {
		return nil, err
	}

	if err := gs.geofenceStore.Create(ctx, &geofence); err != nil {
		return nil, utils.NewDatabaseError("create geofence", err)
	}

	gs.notifyChanged(ctx, geofence.ID.Hex())
	return &geofence, nil
}

func (gs *GeofenceService) UpdateGeofence(ctx context.Context, geofenceID string, req models.UpdateGeofenceRequest) (*models.Geofence, error) {
	if validationErrors := gs.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewValidationError(validationErrors[0].Field, validationErrors[0].Message)
	}

	geofence, err := gs.geofenceStore.GetByID(ctx, geofenceID)
	if err != nil {
		return nil, utils.NewGeofenceNotFoundError()
	}

	if req.Name != nil {
		geofence.Name = *req.Name
	}
	if req.Description != nil {
		geofence.Description = *req.Description
	}
	if req.Type != "" {
		geofence.Type = req.Type
	}
	if req.IsActive != nil {
		geofence.IsActive = *req.IsActive
	}
	if req.AlertOnEnter != nil {
		geofence.AlertOnEnter = *req.AlertOnEnter
	}
	if req.AlertOnExit != nil {
		geofence.AlertOnExit = *req.AlertOnExit
	}
	if req.CenterLat != nil {
		geofence.CenterLat = *req.CenterLat
	}
	if req.CenterLng != nil {
		geofence.CenterLng = *req.CenterLng
	}
	if req.RadiusMeters != nil {
		geofence.RadiusMeters = *req.RadiusMeters
	}
	if req.Vertices != nil {
		geofence.Vertices = req.Vertices
	}

	if err := validateGeometry(geofence); err != nil {
		return nil, err
	}

	if err := gs.geofenceStore.Update(ctx, geofence); err != nil {
		return nil, utils.NewDatabaseError("update geofence", err)
	}

	gs.notifyChanged(ctx, geofence.ID.Hex())
	return geofence, nil
}

func (gs *GeofenceService) DeleteGeofence(ctx context.Context, geofenceID string) error {
	if err := gs.geofenceStore.Delete(ctx, geofenceID); err != nil {
		return utils.NewGeofenceNotFoundError()
	}

	gs.notifyChanged(ctx, geofenceID)
	return nil
}

func (gs *GeofenceService) GetGeofence(ctx context.Context, geofenceID string) (*models.Geofence, error) {
	geofence, err := gs.geofenceStore.GetByID(ctx, geofenceID)
	if err != nil {
		return nil, utils.NewGeofenceNotFoundError()
	}
	return geofence, nil
}

func (gs *GeofenceService) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	return gs.geofenceStore.List(ctx)
}

func (gs *GeofenceService) ListActiveGeofences(ctx context.Context) ([]models.Geofence, error) {
	return gs.geofenceStore.ListActive(ctx)
}

func (gs *GeofenceService) GetEvents(ctx context.Context, req models.GeofenceEventsRequest) ([]models.GeofenceEvent, error) {
	events, err := gs.geofenceStore.GetEvents(ctx, req)
	if err != nil {
		return nil, err
	}

	// Events carry the zone name from creation time, so they stay readable
	// after the geofence itself is deleted. Anything without one gets a
	// placeholder instead of an empty string.
	for i := range events {
		if events[i].GeofenceName == "" {
			events[i].GeofenceName = "unknown"
		}
	}

	return events, nil
}

// ==================== EVALUATION ====================

// Evaluate runs the containment test for a point against each geofence. Inactive
// geofences are excluded by the caller (ListActiveGeofences), not filtered here.
// Pure with respect to its inputs; a linear scan is fine at municipal zone counts.
func (gs *GeofenceService) Evaluate(lat, lng float64, geofences []models.Geofence) []models.ContainmentResult {
	results := make([]models.ContainmentResult, 0, len(geofences))

	for _, geofence := range geofences {
		results = append(results, models.ContainmentResult{
			GeofenceID:   geofence.ID.Hex(),
			GeofenceName: geofence.Name,
			IsInside:     Contains(&geofence, lat, lng),
		})
	}

	return results
}

// CheckPoint evaluates a point against every active geofence.
func (gs *GeofenceService) CheckPoint(ctx context.Context, lat, lng float64) ([]models.ContainmentResult, error) {
	if !utils.IsValidCoordinate(lat, lng) {
		return nil, utils.NewValidationError("latitude", "invalid latitude or longitude coordinates")
	}

	geofences, err := gs.geofenceStore.ListActive(ctx)
	if err != nil {
		return nil, utils.NewDatabaseError("list active geofences", err)
	}

	return gs.Evaluate(lat, lng, geofences), nil
}

// Contains dispatches the containment test by geometry type.
func Contains(geofence *models.Geofence, lat, lng float64) bool {
	switch geofence.Type {
	case models.GeofenceTypeCircle:
		return utils.PointInCircle(lat, lng, geofence.CenterLat, geofence.CenterLng, geofence.RadiusMeters)
	case models.GeofenceTypePolygon:
		vertices := make([]utils.Coordinate, len(geofence.Vertices))
		for i, v := range geofence.Vertices {
			vertices[i] = utils.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude}
		}
		return utils.PointInPolygon(lat, lng, vertices)
	default:
		return false
	}
}

// validateGeometry enforces that exactly one geometry representation matches the
// declared type, rejecting with the offending field name.
func validateGeometry(geofence *models.Geofence) error {
	switch geofence.Type {
	case models.GeofenceTypeCircle:
		if !utils.IsValidCoordinate(geofence.CenterLat, geofence.CenterLng) {
			return utils.NewValidationError("centerLat", "circle geofence requires a valid center coordinate")
		}
		if geofence.RadiusMeters <= 0 {
			return utils.NewValidationError("radiusMeters", "circle geofence requires a positive radius")
		}
		if len(geofence.Vertices) > 0 {
			return utils.NewValidationError("vertices", "circle geofence must not carry polygon vertices")
		}
	case models.GeofenceTypePolygon:
		if len(geofence.Vertices) < 3 {
			return utils.NewValidationError("vertices", "polygon geofence requires at least 3 vertices")
		}
		for _, v := range geofence.Vertices {
			if !utils.IsValidCoordinate(v.Latitude, v.Longitude) {
				return utils.NewValidationError("vertices", "polygon vertex out of coordinate range")
			}
		}
		if geofence.RadiusMeters != 0 {
			return utils.NewValidationError("radiusMeters", "polygon geofence must not carry a radius")
		}
	default:
		return utils.NewValidationError("type", "geofence type must be circle or polygon")
	}
	return nil
}

// notifyChanged is best-effort: a missed nudge only delays the workers' periodic
// refresh, it never affects the definition change itself.
func (gs *GeofenceService) notifyChanged(ctx context.Context, geofenceID string) {
	if gs.redis == nil {
		return
	}
	if err := gs.redis.Publish(ctx, GeofenceChangedChannel, geofenceID).Err(); err != nil {
		logrus.Warnf("Failed to publish geofence change notification: %v", err)
	}
}
