// routes/routes.go
package routes

import (
	"time"

	"fleettrack/config"
	"fleettrack/controllers"
	"fleettrack/middleware"
	"fleettrack/repositories"
	"fleettrack/services"
	"fleettrack/utils"
	"fleettrack/websocket"
	"fleettrack/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRoutes wires repositories, services, controllers and background
// workers, and returns the configured router. Workers are returned
// unstarted so main can manage their lifecycle alongside the HTTP server.
func SetupRoutes(db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub, cfg *config.Config) (*gin.Engine, *Workers) {
	router := gin.New()

	repos := initializeRepositories(db)
	svcs, wrkrs := initializeServices(repos, redisClient, hub, cfg)

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	ctrls := initializeControllers(svcs, hub, jwtService, redisClient)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	setupGlobalMiddleware(router, redisClient, cfg)
	setupPublicRoutes(router, ctrls)
	setupAuthenticatedRoutes(router, ctrls, authMiddleware, redisClient)
	setupAdminRoutes(router, ctrls, authMiddleware, wrkrs)
	setupWebSocketRoutes(router, ctrls, redisClient)

	return router, wrkrs
}

// Repositories initialization
type Repositories struct {
	Telemetry *repositories.TelemetryRepository
	Trip      *repositories.TripRepository
	Geofence  *repositories.GeofenceRepository
}

func initializeRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Telemetry: repositories.NewTelemetryRepository(db),
		Trip:      repositories.NewTripRepository(db),
		Geofence:  repositories.NewGeofenceRepository(db),
	}
}

// Services initialization
type Services struct {
	Telemetry *services.TelemetryService
	Trip      *services.TripService
	Geofence  *services.GeofenceService
}

// Workers holds the background workers built during wiring. MQTT is nil
// when no broker is configured.
type Workers struct {
	Geofence *workers.GeofenceWorker
	Cleanup  *workers.CleanupWorker
	MQTT     *workers.MQTTWorker
}

func initializeServices(repos *Repositories, redisClient *redis.Client, hub *websocket.Hub, cfg *config.Config) (*Services, *Workers) {
	cache := services.NewLivePositionCache()

	geofenceService := services.NewGeofenceService(repos.Geofence, redisClient)
	detector := services.NewTransitionDetector(repos.Geofence, hub, cfg.GeofenceDebounceCount)

	// Evaluation runs off the request path: ingest hands samples to the
	// geofence worker queue, which drives the transition detector.
	geofenceWorker := workers.NewGeofenceWorker(
		redisClient,
		geofenceService,
		detector,
		time.Duration(cfg.GeofenceRefreshSec)*time.Second,
	)

	// One lock table across both services: batch-ingest recomputes and the
	// close-time recompute serialize per trip.
	tripLocks := services.NewTripLocks()
	telemetryService := services.NewTelemetryService(repos.Telemetry, repos.Trip, cache, hub, geofenceWorker, tripLocks, cfg.MaxBatchSize)
	tripService := services.NewTripService(repos.Trip, repos.Telemetry, cache, tripLocks)

	cleanupWorker := workers.NewCleanupWorker(repos.Telemetry, repos.Trip, cache, detector, cfg.SampleRetentionDays)

	var mqttWorker *workers.MQTTWorker
	if cfg.MQTTBroker != "" {
		mqttWorker = workers.NewMQTTWorker(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, telemetryService)
	}

	svcs := &Services{
		Telemetry: telemetryService,
		Trip:      tripService,
		Geofence:  geofenceService,
	}
	wrkrs := &Workers{
		Geofence: geofenceWorker,
		Cleanup:  cleanupWorker,
		MQTT:     mqttWorker,
	}
	return svcs, wrkrs
}

// Controllers initialization
type Controllers struct {
	Telemetry *controllers.TelemetryController
	Trip      *controllers.TripController
	Geofence  *controllers.GeofenceController
	WebSocket *controllers.WebSocketController
	Health    *controllers.HealthController
}

func initializeControllers(svcs *Services, hub *websocket.Hub, jwtService *utils.JWTService, redisClient *redis.Client) *Controllers {
	return &Controllers{
		Telemetry: controllers.NewTelemetryController(svcs.Telemetry),
		Trip:      controllers.NewTripController(svcs.Trip),
		Geofence:  controllers.NewGeofenceController(svcs.Geofence),
		WebSocket: controllers.NewWebSocketController(hub, jwtService),
		Health:    controllers.NewHealthController(redisClient),
	}
}

// Global middleware setup
func setupGlobalMiddleware(router *gin.Engine, redisClient *redis.Client, cfg *config.Config) {
	errorHandler := middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger())

	router.Use(errorHandler.Handle())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Environment))
	router.Use(middleware.DefaultRateLimit(redisClient, cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Minute))
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, ctrls *Controllers) {
	router.GET("/health", ctrls.Health.HealthCheck)
}

// Authenticated routes (requires valid JWT token)
func setupAuthenticatedRoutes(router *gin.Engine, ctrls *Controllers, auth *middleware.AuthMiddleware, redisClient *redis.Client) {
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth())

	SetupTelemetryRoutes(api, ctrls.Telemetry, redisClient)
	SetupTripRoutes(api, ctrls.Trip)
	SetupGeofenceRoutes(api, ctrls.Geofence)
}

// Admin routes (requires admin role)
func setupAdminRoutes(router *gin.Engine, ctrls *Controllers, auth *middleware.AuthMiddleware, wrkrs *Workers) {
	admin := router.Group("/api/v1/admin")
	admin.Use(auth.RequireAuth())
	admin.Use(auth.RequireRole("admin"))

	admin.GET("/connections", ctrls.WebSocket.GetConnectionStats)
	admin.GET("/workers", func(c *gin.Context) {
		stats := gin.H{
			"geofence": wrkrs.Geofence.GetStats(),
			"cleanup":  wrkrs.Cleanup.GetStats(),
		}
		if wrkrs.MQTT != nil {
			stats["mqtt"] = wrkrs.MQTT.GetStats()
		}
		utils.SuccessResponse(c, "Worker stats retrieved successfully", stats)
	})
}

// WebSocket routes
func setupWebSocketRoutes(router *gin.Engine, ctrls *Controllers, redisClient *redis.Client) {
	SetupWebSocketRoutes(router, ctrls.WebSocket, redisClient)
}
