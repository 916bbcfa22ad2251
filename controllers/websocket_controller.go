package controllers

import (
	"fleettrack/models"
	"fleettrack/utils"
	"fleettrack/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub        *websocket.Hub
	jwtService *utils.JWTService
}

func NewWebSocketController(hub *websocket.Hub, jwtService *utils.JWTService) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps. The
// token rides in the query string because browsers cannot set headers on
// websocket requests.
func (wsc *WebSocketController) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.UnauthorizedResponse(c, "Authentication token is required")
		return
	}

	claims, err := wsc.jwtService.ValidateToken(token)
	if err != nil {
		logrus.Errorf("WebSocket authentication failed: %v", err)
		utils.UnauthorizedResponse(c, "Invalid authentication token")
		return
	}

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		logrus.Errorf("Failed to upgrade WebSocket connection: %v", err)
		utils.BadRequestResponse(c, "Failed to establish WebSocket connection")
		return
	}

	client := websocket.NewClient(conn, wsc.hub, claims.ReporterID, c.Request)
	wsc.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	logrus.Infof("WebSocket connection established for reporter %s", claims.ReporterID)
}

// GetConnectionStats returns hub statistics (admin only)
func (wsc *WebSocketController) GetConnectionStats(c *gin.Context) {
	if c.GetString("role") != "admin" {
		utils.ErrorResponse(c, 403, "Admin access required", nil)
		return
	}

	stats := map[string]interface{}{
		"activeConnections":        wsc.hub.ActiveConnections(),
		"positionSubscribers":      wsc.hub.SubscriberCount(models.TopicPositions),
		"geofenceEventSubscribers": wsc.hub.SubscriberCount(models.TopicGeofenceEvents),
	}

	utils.SuccessResponse(c, "Connection statistics retrieved successfully", stats)
}
