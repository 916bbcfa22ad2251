package controllers

import (
	"context"
	"fleettrack/database"
	"fleettrack/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const apiVersion = "1.0.0"

type HealthController struct {
	redis     *redis.Client
	startTime time.Time
}

func NewHealthController(redisClient *redis.Client) *HealthController {
	return &HealthController{
		redis:     redisClient,
		startTime: time.Now(),
	}
}

// HealthCheck reports service health including its dependencies
func (hc *HealthController) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	services := map[string]string{
		"mongodb": "healthy",
		"redis":   "healthy",
	}

	if !database.IsConnected() {
		services["mongodb"] = "unhealthy"
	}
	if hc.redis == nil || hc.redis.Ping(ctx).Err() != nil {
		services["redis"] = "unhealthy"
	}

	response := utils.HealthCheckResponse(services, apiVersion, utils.FormatUptime(time.Since(hc.startTime)))

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response)
}
