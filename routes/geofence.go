// routes/geofence.go
package routes

import (
	"fleettrack/controllers"

	"github.com/gin-gonic/gin"
)

// SetupGeofenceRoutes configures geofence management and query routes
func SetupGeofenceRoutes(router *gin.RouterGroup, geofenceController *controllers.GeofenceController) {
	geofences := router.Group("/geofences")
	{
		geofences.POST("/", geofenceController.CreateGeofence)
		geofences.GET("/", geofenceController.ListGeofences)

		// Ad-hoc containment check and the event feed sit above the :id routes
		// so gin does not treat them as geofence IDs.
		geofences.POST("/check", geofenceController.CheckPoint)
		geofences.GET("/events", geofenceController.GetEvents)

		geofences.GET("/:geofenceId", geofenceController.GetGeofence)
		geofences.PUT("/:geofenceId", geofenceController.UpdateGeofence)
		geofences.DELETE("/:geofenceId", geofenceController.DeleteGeofence)
	}
}
