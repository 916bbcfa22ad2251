package services

import (
	"context"
	"fleettrack/models"
	"fleettrack/utils"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TransitionDetector tracks last-known containment per (vehicle, geofence) pair
// and turns raw per-evaluation booleans into discrete enter/exit events.
//
// The first observation of a pair establishes a baseline and never emits. After
// that, a side change must be seen on debounceCount consecutive evaluations
// before the transition commits; GPS jitter near a zone boundary therefore
// cannot produce an event storm. State lives only in memory; losing it costs at
// most one suppressed baseline event per pair after a restart.
type TransitionDetector struct {
	geofenceStore GeofenceStore
	publisher     EventPublisher
	debounceCount int

	mu     sync.Mutex
	states map[pairKey]*pairState
}

type pairKey struct {
	vehicleID  string
	geofenceID string
}

type pairState struct {
	mu sync.Mutex

	known  bool
	inside bool

	// Candidate side change awaiting confirmation
	pendingInside bool
	pendingCount  int

	lastEvaluatedAt time.Time
}

// Observation is one containment evaluation for a (vehicle, geofence) pair.
type Observation struct {
	VehicleID  string
	ReporterID string
	Geofence   *models.Geofence
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
	IsInside   bool
}

func NewTransitionDetector(geofenceStore GeofenceStore, publisher EventPublisher, debounceCount int) *TransitionDetector {
	if debounceCount < 1 {
		debounceCount = 1
	}
	return &TransitionDetector{
		geofenceStore: geofenceStore,
		publisher:     publisher,
		debounceCount: debounceCount,
		states:        make(map[pairKey]*pairState),
	}
}

// Observe processes one evaluation result. It returns the emitted event, or nil
// when the observation was a baseline, a no-op, or a still-unconfirmed change.
// Different pairs proceed concurrently; observations for the same pair serialize
// on the pair's own lock.
func (td *TransitionDetector) Observe(ctx context.Context, obs Observation) (*models.GeofenceEvent, error) {
	state := td.stateFor(obs.VehicleID, obs.Geofence.ID.Hex())

	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastEvaluatedAt = time.Now()

	// First observation establishes the baseline, not a crossing.
	if !state.known {
		state.known = true
		state.inside = obs.IsInside
		return nil, nil
	}

	// Same side as committed state: clear any pending change.
	if obs.IsInside == state.inside {
		state.pendingCount = 0
		return nil, nil
	}

	// Candidate side change; count consecutive confirmations.
	if state.pendingCount > 0 && state.pendingInside == obs.IsInside {
		state.pendingCount++
	} else {
		state.pendingInside = obs.IsInside
		state.pendingCount = 1
	}

	if state.pendingCount < td.debounceCount {
		return nil, nil
	}

	// Confirmed transition.
	eventType := models.GeofenceEventExit
	wanted := obs.Geofence.AlertOnExit
	if obs.IsInside {
		eventType = models.GeofenceEventEnter
		wanted = obs.Geofence.AlertOnEnter
	}

	if !wanted {
		state.inside = obs.IsInside
		state.pendingCount = 0
		return nil, nil
	}

	event := &models.GeofenceEvent{
		GeofenceID:   obs.Geofence.ID,
		GeofenceName: obs.Geofence.Name,
		VehicleID:    utils.ObjectIDFromHex(obs.VehicleID),
		ReporterID:   utils.ObjectIDFromHex(obs.ReporterID),
		EventType:    eventType,
		Latitude:     obs.Latitude,
		Longitude:    obs.Longitude,
		RecordedAt:   obs.RecordedAt,
	}

	// Persist before committing state so a failed insert is retried on the next
	// same-side observation instead of being lost.
	if err := td.geofenceStore.InsertEvent(ctx, event); err != nil {
		return nil, err
	}

	state.inside = obs.IsInside
	state.pendingCount = 0

	// Notification is best-effort; the transition already happened.
	td.publisher.PublishGeofenceEvent(*event)

	logrus.Infof("Geofence %s event: vehicle %s %s %s",
		eventType, obs.VehicleID, directionWord(eventType), obs.Geofence.Name)

	return event, nil
}

// Prune drops pair states not evaluated since the cutoff, reclaiming memory for
// vehicles that went quiet or geofences that were deleted.
func (td *TransitionDetector) Prune(olderThan time.Time) int {
	td.mu.Lock()
	defer td.mu.Unlock()

	pruned := 0
	for key, state := range td.states {
		state.mu.Lock()
		stale := state.lastEvaluatedAt.Before(olderThan)
		state.mu.Unlock()

		if stale {
			delete(td.states, key)
			pruned++
		}
	}
	return pruned
}

// PairCount reports how many pairs are currently tracked.
func (td *TransitionDetector) PairCount() int {
	td.mu.Lock()
	defer td.mu.Unlock()
	return len(td.states)
}

func (td *TransitionDetector) stateFor(vehicleID, geofenceID string) *pairState {
	key := pairKey{vehicleID: vehicleID, geofenceID: geofenceID}

	td.mu.Lock()
	defer td.mu.Unlock()

	state, ok := td.states[key]
	if !ok {
		state = &pairState{}
		td.states[key] = state
	}
	return state
}

func directionWord(eventType string) string {
	if eventType == models.GeofenceEventEnter {
		return "entered"
	}
	return "left"
}
