package controllers

import (
	"fleettrack/models"
	"fleettrack/services"
	"fleettrack/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TripController struct {
	tripService *services.TripService
}

func NewTripController(tripService *services.TripService) *TripController {
	return &TripController{
		tripService: tripService,
	}
}

// StartTrip opens a new trip for a vehicle
func (tc *TripController) StartTrip(c *gin.Context) {
	var req models.StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid trip payload")
		return
	}

	trip, err := tc.tripService.StartTrip(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Start trip failed for vehicle %s: %v", req.VehicleID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Trip started successfully", trip)
}

// EndTrip completes an active trip with a closing odometer reading
func (tc *TripController) EndTrip(c *gin.Context) {
	var req models.EndTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid trip payload")
		return
	}

	trip, err := tc.tripService.EndTrip(c.Request.Context(), c.Param("tripId"), req)
	if err != nil {
		logrus.Errorf("End trip failed for %s: %v", c.Param("tripId"), err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip ended successfully", trip)
}

// CancelTrip discards an active trip
func (tc *TripController) CancelTrip(c *gin.Context) {
	trip, err := tc.tripService.CancelTrip(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		logrus.Errorf("Cancel trip failed for %s: %v", c.Param("tripId"), err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip cancelled successfully", trip)
}

// GetTrip returns one trip by ID
func (tc *TripController) GetTrip(c *gin.Context) {
	trip, err := tc.tripService.GetTrip(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip retrieved successfully", trip)
}

// GetTripStats returns a trip's aggregates plus its sample count
func (tc *TripController) GetTripStats(c *gin.Context) {
	stats, err := tc.tripService.GetTripStats(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip stats retrieved successfully", stats)
}
