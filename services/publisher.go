package services

import (
	"fleettrack/models"
)

// EventPublisher is the fan-out boundary for downstream subscribers. Delivery is
// best-effort: implementations log and swallow their own failures, and callers
// never treat a publish as part of the triggering operation's outcome.
type EventPublisher interface {
	PublishPosition(entry models.LivePositionEntry)
	PublishGeofenceEvent(event models.GeofenceEvent)
}

// NoopPublisher discards everything. Used in tests and when no transport is wired.
type NoopPublisher struct{}

func (NoopPublisher) PublishPosition(models.LivePositionEntry) {}

func (NoopPublisher) PublishGeofenceEvent(models.GeofenceEvent) {}
