package websocket

import (
	"context"
	"encoding/json"
	"fleettrack/models"
	"fleettrack/utils"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Buffer size for client send channel
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

// Upgrade promotes an HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Client is one websocket subscriber. It only receives events; the few commands
// it may send are subscribe/unsubscribe.
type Client struct {
	conn *websocket.Conn

	reporterID   string
	connectionID string
	connectedAt  time.Time
	lastActivity time.Time
	ipAddress    string

	send chan models.WSMessage

	hub *Hub

	rateLimiter *utils.RateLimiter

	isActive      bool
	pingFailCount int

	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewClient(conn *websocket.Conn, hub *Hub, reporterID string, r *http.Request) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:         conn,
		hub:          hub,
		reporterID:   reporterID,
		send:         make(chan models.WSMessage, sendBufferSize),
		connectionID: utils.GenerateUUID(),
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
		ipAddress:    clientIP(r),
		rateLimiter:  utils.NewRateLimiter(30, time.Minute),
		isActive:     true,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.handlePong()
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, messageData, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Errorf("WebSocket error for client %s: %v", c.connectionID, err)
				}
				return
			}

			c.lastActivity = time.Now()

			if !c.rateLimiter.Allow() {
				c.sendError("Rate limit exceeded")
				continue
			}

			c.handleCommand(messageData)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.Errorf("Write error for client %s: %v", c.connectionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.pingFailCount++
				if c.pingFailCount > 3 {
					logrus.Warnf("Ping failed for client %s, disconnecting", c.connectionID)
					return
				}
			}
		}
	}
}

func (c *Client) handleCommand(messageData []byte) {
	var cmd models.WSClientCommand
	if err := json.Unmarshal(messageData, &cmd); err != nil {
		c.sendError("Invalid command format")
		return
	}

	if !validTopic(cmd.Topic) {
		c.sendError("Unknown topic")
		return
	}

	switch cmd.Action {
	case "subscribe":
		c.hub.Subscribe(c, cmd.Topic)
		c.sendAck(models.WSTypeSubscribed, cmd.Topic)
	case "unsubscribe":
		c.hub.Unsubscribe(c, cmd.Topic)
		c.sendAck(models.WSTypeUnsubscribed, cmd.Topic)
	default:
		c.sendError("Unknown action")
	}
}

func validTopic(topic string) bool {
	return topic == models.TopicPositions || topic == models.TopicGeofenceEvents
}

func (c *Client) handlePong() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.pingFailCount = 0
}

func (c *Client) sendAck(msgType, topic string) {
	c.SendMessage(models.WSMessage{
		Type:      msgType,
		Topic:     topic,
		Timestamp: time.Now(),
	})
}

func (c *Client) sendError(message string) {
	c.SendMessage(models.WSMessage{
		Type:      models.WSTypeError,
		Data:      map[string]interface{}{"message": message},
		Timestamp: time.Now(),
	})
}

// SendMessage queues a message, reporting whether it was accepted. A full
// buffer drops the message rather than blocking the hub.
func (c *Client) SendMessage(message models.WSMessage) bool {
	if !c.isActive {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		logrus.Warnf("Send channel full for client %s", c.connectionID)
		return false
	}
}

func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		c.isActive = false
		c.cancel()

		select {
		case c.hub.unregister <- c:
		default:
		}

		close(c.send)
		c.conn.Close()

		logrus.Infof("Client disconnected: %s", c.connectionID)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
