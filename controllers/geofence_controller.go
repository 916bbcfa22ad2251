package controllers

import (
	"fleettrack/models"
	"fleettrack/services"
	"fleettrack/utils"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type GeofenceController struct {
	geofenceService *services.GeofenceService
}

func NewGeofenceController(geofenceService *services.GeofenceService) *GeofenceController {
	return &GeofenceController{
		geofenceService: geofenceService,
	}
}

// CreateGeofence creates a geofence definition
func (gc *GeofenceController) CreateGeofence(c *gin.Context) {
	var req models.CreateGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid geofence payload")
		return
	}

	geofence, err := gc.geofenceService.CreateGeofence(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Create geofence failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Geofence created successfully", geofence)
}

// GetGeofence returns one geofence by ID
func (gc *GeofenceController) GetGeofence(c *gin.Context) {
	geofence, err := gc.geofenceService.GetGeofence(c.Request.Context(), c.Param("geofenceId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofence retrieved successfully", geofence)
}

// ListGeofences returns all geofence definitions
func (gc *GeofenceController) ListGeofences(c *gin.Context) {
	geofences, err := gc.geofenceService.ListGeofences(c.Request.Context())
	if err != nil {
		logrus.Errorf("List geofences failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofences retrieved successfully", geofences)
}

// UpdateGeofence applies a partial update to a geofence definition
func (gc *GeofenceController) UpdateGeofence(c *gin.Context) {
	var req models.UpdateGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid geofence payload")
		return
	}

	geofence, err := gc.geofenceService.UpdateGeofence(c.Request.Context(), c.Param("geofenceId"), req)
	if err != nil {
		logrus.Errorf("Update geofence failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofence updated successfully", geofence)
}

// DeleteGeofence removes a geofence definition. Its historical events remain.
func (gc *GeofenceController) DeleteGeofence(c *gin.Context) {
	if err := gc.geofenceService.DeleteGeofence(c.Request.Context(), c.Param("geofenceId")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofence deleted successfully", nil)
}

// CheckPoint evaluates an arbitrary point against all active geofences
func (gc *GeofenceController) CheckPoint(c *gin.Context) {
	var req models.PointCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid point payload")
		return
	}

	results, err := gc.geofenceService.CheckPoint(c.Request.Context(), req.Latitude, req.Longitude)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Point checked successfully", results)
}

// GetEvents returns recorded geofence transition events
func (gc *GeofenceController) GetEvents(c *gin.Context) {
	req := models.GeofenceEventsRequest{
		VehicleID: c.Query("vehicleId"),
	}

	if raw := c.Query("startTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequestResponse(c, "startTime must be an RFC3339 timestamp")
			return
		}
		req.StartTime = &t
	}
	if raw := c.Query("endTime"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequestResponse(c, "endTime must be an RFC3339 timestamp")
			return
		}
		req.EndTime = &t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			utils.BadRequestResponse(c, "limit must be a positive integer")
			return
		}
		req.Limit = limit
	}

	events, err := gc.geofenceService.GetEvents(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Get geofence events failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Geofence events retrieved successfully", events)
}
