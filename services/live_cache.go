package services

import (
	"fleettrack/models"
	"sort"
	"sync"
)

// Speed thresholds (km/h) for the derived motion status.
const (
	movingSpeedThreshold = 5.0
)

// LivePositionCache holds the latest known sample per vehicle. It is created once
// at service start and injected wherever needed; entries are written only by the
// telemetry ingest path and evicted when the vehicle's trip closes. Each write
// replaces the whole entry, so readers never observe a torn record.
type LivePositionCache struct {
	mu      sync.RWMutex
	entries map[string]models.LivePositionEntry
}

func NewLivePositionCache() *LivePositionCache {
	return &LivePositionCache{
		entries: make(map[string]models.LivePositionEntry),
	}
}

// Update replaces the vehicle's entry. Stale writes (an entry recorded before the
// one already cached, as happens with retried uploads) are dropped.
func (c *LivePositionCache) Update(entry models.LivePositionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[entry.VehicleID]; ok {
		if entry.RecordedAt.Before(existing.RecordedAt) {
			return
		}
	}
	c.entries[entry.VehicleID] = entry
}

func (c *LivePositionCache) Get(vehicleID string) (models.LivePositionEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[vehicleID]
	if !ok {
		return models.LivePositionEntry{}, false
	}
	entry.Status = MotionStatus(entry.Speed)
	return entry, true
}

func (c *LivePositionCache) Evict(vehicleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, vehicleID)
}

// Snapshot returns all current entries with their derived status, ordered by
// vehicle ID for stable output.
func (c *LivePositionCache) Snapshot() []models.LivePositionEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]models.LivePositionEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entry.Status = MotionStatus(entry.Speed)
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].VehicleID < entries[j].VehicleID
	})
	return entries
}

// Retain evicts every entry whose vehicle ID is not in the keep set. Used by the
// cleanup worker to reconcile against the set of vehicles with an active trip.
func (c *LivePositionCache) Retain(keep map[string]bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for vehicleID := range c.entries {
		if !keep[vehicleID] {
			delete(c.entries, vehicleID)
			evicted++
		}
	}
	return evicted
}

func (c *LivePositionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MotionStatus classifies a speed in km/h: moving above 5, slow between 0 and 5
// inclusive, stopped at zero or when speed is unknown.
func MotionStatus(speedKmh float64) string {
	switch {
	case speedKmh > movingSpeedThreshold:
		return models.MotionStatusMoving
	case speedKmh > 0:
		return models.MotionStatusSlow
	default:
		return models.MotionStatusStopped
	}
}
