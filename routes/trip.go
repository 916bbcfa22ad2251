// routes/trip.go
package routes

import (
	"fleettrack/controllers"

	"github.com/gin-gonic/gin"
)

// SetupTripRoutes configures trip lifecycle routes
func SetupTripRoutes(router *gin.RouterGroup, tripController *controllers.TripController) {
	trips := router.Group("/trips")
	{
		trips.POST("/start", tripController.StartTrip)
		trips.POST("/:tripId/end", tripController.EndTrip)
		trips.POST("/:tripId/cancel", tripController.CancelTrip)
		trips.GET("/:tripId", tripController.GetTrip)
		trips.GET("/:tripId/stats", tripController.GetTripStats)
	}
}
