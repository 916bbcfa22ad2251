// routes/telemetry.go
package routes

import (
	"fleettrack/controllers"
	"fleettrack/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupTelemetryRoutes configures telemetry ingestion and query routes
func SetupTelemetryRoutes(router *gin.RouterGroup, telemetryController *controllers.TelemetryController, redis *redis.Client) {
	telemetry := router.Group("/telemetry")
	{
		// Batch ingest gets its own, tighter limit keyed per reporter
		telemetry.POST("/batch", middleware.IngestRateLimit(redis), telemetryController.IngestBatch)
		telemetry.GET("/live", telemetryController.GetLivePositions)
	}

	vehicles := router.Group("/vehicles")
	{
		vehicles.GET("/:vehicleId/route", telemetryController.GetVehicleRoute)
	}
}
