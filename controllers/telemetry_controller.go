package controllers

import (
	"fleettrack/models"
	"fleettrack/services"
	"fleettrack/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TelemetryController struct {
	telemetryService *services.TelemetryService
}

func NewTelemetryController(telemetryService *services.TelemetryService) *TelemetryController {
	return &TelemetryController{
		telemetryService: telemetryService,
	}
}

// IngestBatch accepts a batch of position samples from an authenticated reporter
func (tc *TelemetryController) IngestBatch(c *gin.Context) {
	reporterID := c.GetString("reporterID")
	if reporterID == "" {
		utils.UnauthorizedResponse(c, "Reporter not authenticated")
		return
	}

	var req models.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid batch payload")
		return
	}

	resp, err := tc.telemetryService.IngestBatch(c.Request.Context(), reporterID, req)
	if err != nil {
		logrus.Errorf("Ingest batch failed for vehicle %s: %v", req.VehicleID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Batch ingested successfully", resp)
}

// GetLivePositions returns the latest known position of every tracked vehicle
func (tc *TelemetryController) GetLivePositions(c *gin.Context) {
	entries := tc.telemetryService.GetLivePositions()
	utils.SuccessResponse(c, "Live positions retrieved successfully", entries)
}

// GetVehicleRoute returns a vehicle's samples within a time range
func (tc *TelemetryController) GetVehicleRoute(c *gin.Context) {
	vehicleID := c.Param("vehicleId")

	start, err := parseTimeQuery(c, "startTime")
	if err != nil {
		utils.BadRequestResponse(c, "startTime must be an RFC3339 timestamp")
		return
	}
	end, err := parseTimeQuery(c, "endTime")
	if err != nil {
		utils.BadRequestResponse(c, "endTime must be an RFC3339 timestamp")
		return
	}

	route, err := tc.telemetryService.GetVehicleRoute(c.Request.Context(), vehicleID, start, end)
	if err != nil {
		logrus.Errorf("Get vehicle route failed for %s: %v", vehicleID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Vehicle route retrieved successfully", route)
}

func parseTimeQuery(c *gin.Context, name string) (time.Time, error) {
	return time.Parse(time.RFC3339, c.Query(name))
}
