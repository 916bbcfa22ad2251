// models/websocket.go
package models

import "time"

// Broadcast topics a websocket client can subscribe to.
const (
	TopicPositions      = "positions"
	TopicGeofenceEvents = "geofence-events"
)

// Message types pushed to subscribers.
const (
	WSTypePositionUpdate = "position.update"
	WSTypeGeofenceEvent  = "geofence.event"
	WSTypeSubscribed     = "subscribed"
	WSTypeUnsubscribed   = "unsubscribed"
	WSTypeError          = "error"
)

type WSMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WSClientCommand is what a connected client sends: subscribe/unsubscribe requests.
type WSClientCommand struct {
	Action string `json:"action"` // subscribe, unsubscribe
	Topic  string `json:"topic"`
}
