// routes/websocket.go
package routes

import (
	"fleettrack/controllers"
	"fleettrack/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupWebSocketRoutes configures the live stream endpoint. The token
// travels as a query parameter because browser WebSocket clients cannot
// set an Authorization header; the controller validates it before the
// upgrade.
func SetupWebSocketRoutes(router *gin.Engine, wsController *controllers.WebSocketController, redis *redis.Client) {
	router.GET("/ws", middleware.WebSocketRateLimit(redis), wsController.HandleWebSocket)
}
