package services

import (
	"testing"
	"time"

	"fleettrack/models"

	"github.com/stretchr/testify/assert"
)

func TestLiveCacheUpdateAndGet(t *testing.T) {
	cache := NewLivePositionCache()
	now := time.Now()

	cache.Update(models.LivePositionEntry{
		VehicleID:  "veh-1",
		Latitude:   -36.85,
		Longitude:  174.76,
		Speed:      30,
		RecordedAt: now,
	})

	entry, ok := cache.Get("veh-1")
	assert.True(t, ok)
	assert.Equal(t, models.MotionStatusMoving, entry.Status)
	assert.Equal(t, 30.0, entry.Speed)

	_, ok = cache.Get("veh-2")
	assert.False(t, ok)
}

func TestLiveCacheDropsStaleWrites(t *testing.T) {
	cache := NewLivePositionCache()
	now := time.Now()

	cache.Update(models.LivePositionEntry{VehicleID: "veh-1", Speed: 50, RecordedAt: now})
	// Retried upload carrying an older fix must not clobber the newer one.
	cache.Update(models.LivePositionEntry{VehicleID: "veh-1", Speed: 10, RecordedAt: now.Add(-time.Minute)})

	entry, _ := cache.Get("veh-1")
	assert.Equal(t, 50.0, entry.Speed)
}

func TestLiveCacheMotionStatus(t *testing.T) {
	assert.Equal(t, models.MotionStatusMoving, MotionStatus(5.1))
	assert.Equal(t, models.MotionStatusSlow, MotionStatus(5))
	assert.Equal(t, models.MotionStatusSlow, MotionStatus(0.1))
	assert.Equal(t, models.MotionStatusStopped, MotionStatus(0))
}

func TestLiveCacheSnapshotOrdered(t *testing.T) {
	cache := NewLivePositionCache()
	now := time.Now()

	cache.Update(models.LivePositionEntry{VehicleID: "c", RecordedAt: now})
	cache.Update(models.LivePositionEntry{VehicleID: "a", RecordedAt: now})
	cache.Update(models.LivePositionEntry{VehicleID: "b", RecordedAt: now})

	snapshot := cache.Snapshot()
	assert.Len(t, snapshot, 3)
	assert.Equal(t, "a", snapshot[0].VehicleID)
	assert.Equal(t, "b", snapshot[1].VehicleID)
	assert.Equal(t, "c", snapshot[2].VehicleID)
}

func TestLiveCacheEvictAndRetain(t *testing.T) {
	cache := NewLivePositionCache()
	now := time.Now()

	cache.Update(models.LivePositionEntry{VehicleID: "veh-1", RecordedAt: now})
	cache.Update(models.LivePositionEntry{VehicleID: "veh-2", RecordedAt: now})
	cache.Update(models.LivePositionEntry{VehicleID: "veh-3", RecordedAt: now})

	cache.Evict("veh-1")
	assert.Equal(t, 2, cache.Len())

	evicted := cache.Retain(map[string]bool{"veh-2": true})
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get("veh-2")
	assert.True(t, ok)
}
