package websocket

import (
	"context"
	"fleettrack/models"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hub fans live telemetry out to websocket subscribers. Clients subscribe to
// topics (positions, geofence-events); the hub pushes every published event to
// every subscriber of its topic. Delivery is best-effort: a slow client's full
// send buffer drops messages for that client only.
//
// Hub satisfies services.EventPublisher, so the ingest and geofence pipelines
// publish through it without knowing about websockets.
type Hub struct {
	clients map[*Client]bool

	// topic -> subscribed clients
	topics map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan models.WSMessage

	stats HubStats

	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalConnections  int64
	ActiveConnections int
	MessagesSent      int64
	MessagesDropped   int64
	StartTime         time.Time

	mutex sync.Mutex
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan models.WSMessage, 512),
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	hub.cleanupTicker = time.NewTicker(5 * time.Minute)

	return hub
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	go h.runCleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.publish:
			h.fanOut(message)

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

// PublishPosition implements services.EventPublisher.
func (h *Hub) PublishPosition(entry models.LivePositionEntry) {
	h.enqueue(models.WSMessage{
		Type:      models.WSTypePositionUpdate,
		Topic:     models.TopicPositions,
		Data:      entry,
		Timestamp: time.Now(),
	})
}

// PublishGeofenceEvent implements services.EventPublisher.
func (h *Hub) PublishGeofenceEvent(event models.GeofenceEvent) {
	h.enqueue(models.WSMessage{
		Type:      models.WSTypeGeofenceEvent,
		Topic:     models.TopicGeofenceEvents,
		Data:      event,
		Timestamp: time.Now(),
	})
}

func (h *Hub) enqueue(message models.WSMessage) {
	select {
	case h.publish <- message:
	default:
		h.stats.mutex.Lock()
		h.stats.MessagesDropped++
		h.stats.mutex.Unlock()
		logrus.Warnf("Publish channel full, dropping %s message", message.Type)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.stats.ActiveConnections++
	h.stats.TotalConnections++

	logrus.Infof("Client registered: %s (Total: %d)", client.connectionID, h.stats.ActiveConnections)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	for topic, subscribers := range h.topics {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
	h.stats.ActiveConnections--

	logrus.Infof("Client unregistered: %s (Total: %d)", client.connectionID, h.stats.ActiveConnections)
}

// RegisterClient hands a newly upgraded connection to the hub loop.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// Subscribe adds the client to a topic. Unknown topics are rejected by the
// client command handler before it gets here.
func (h *Hub) Subscribe(client *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers, ok := h.topics[topic]
	if !ok {
		subscribers = make(map[*Client]bool)
		h.topics[topic] = subscribers
	}
	subscribers[client] = true
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subscribers, ok := h.topics[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) fanOut(message models.WSMessage) {
	h.mutex.RLock()
	subscribers := make([]*Client, 0, len(h.topics[message.Topic]))
	for client := range h.topics[message.Topic] {
		subscribers = append(subscribers, client)
	}
	h.mutex.RUnlock()

	sent := 0
	for _, client := range subscribers {
		if client.SendMessage(message) {
			sent++
		}
	}

	if sent > 0 {
		h.stats.mutex.Lock()
		h.stats.MessagesSent += int64(sent)
		h.stats.mutex.Unlock()
	}
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) ActiveConnections() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.stats.ActiveConnections
}

func (h *Hub) runCleanup() {
	for {
		select {
		case <-h.cleanupTicker.C:
			h.performCleanup()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) performCleanup() {
	h.mutex.Lock()
	stale := make([]*Client, 0)
	for client := range h.clients {
		if !client.isActive || time.Since(client.lastActivity) > 5*time.Minute {
			stale = append(stale, client)
		}
	}
	h.mutex.Unlock()

	for _, client := range stale {
		logrus.Warnf("Removing inactive client: %s", client.connectionID)
		client.cleanup()
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")

	h.cleanupTicker.Stop()
	h.cancel()

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.cleanup()
	}

	logrus.Info("WebSocket Hub shutdown complete")
}
