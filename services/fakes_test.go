package services

import (
	"context"
	"sync"
	"time"

	"fleettrack/models"
	"fleettrack/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory store fakes shared by the service tests.

type fakeSampleStore struct {
	mu      sync.Mutex
	samples []models.PositionSample

	insertErr error
	queryErr  error
}

func (f *fakeSampleStore) InsertBatch(_ context.Context, samples []models.PositionSample) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, samples...)
	return len(samples), nil
}

func (f *fakeSampleStore) GetTripSamples(_ context.Context, tripID string) ([]models.PositionSample, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PositionSample
	for _, s := range f.samples {
		if s.TripID.Hex() == tripID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSampleStore) GetVehicleRoute(_ context.Context, vehicleID string, start, end time.Time) ([]models.PositionSample, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PositionSample
	for _, s := range f.samples {
		if s.VehicleID.Hex() != vehicleID {
			continue
		}
		if s.RecordedAt.Before(start) || s.RecordedAt.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeTripStore struct {
	mu    sync.Mutex
	trips map[string]*models.Trip

	createErr error
	closeErr  error
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{trips: make(map[string]*models.Trip)}
}

func (f *fakeTripStore) Create(_ context.Context, trip *models.Trip) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.CreatedAt = time.Now()
	copied := *trip
	f.trips[trip.ID.Hex()] = &copied
	return nil
}

func (f *fakeTripStore) GetByID(_ context.Context, tripID string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return nil, repositories.ErrTripNotFound
	}
	copied := *trip
	return &copied, nil
}

func (f *fakeTripStore) GetActiveByVehicle(_ context.Context, vehicleID string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, trip := range f.trips {
		if trip.VehicleID.Hex() == vehicleID && trip.Status == models.TripStatusActive {
			copied := *trip
			return &copied, nil
		}
	}
	return nil, repositories.ErrTripNotFound
}

func (f *fakeTripStore) UpdateStats(_ context.Context, tripID string, totalDistanceKm, avgSpeed, maxSpeed float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return repositories.ErrTripNotFound
	}
	if trip.Status != models.TripStatusActive {
		return repositories.ErrTripNotActive
	}
	trip.TotalDistanceKm = totalDistanceKm
	trip.AvgSpeed = avgSpeed
	trip.MaxSpeed = maxSpeed
	return nil
}

func (f *fakeTripStore) Close(_ context.Context, tripID, status string, endOdometerKm *float64) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[tripID]
	if !ok {
		return repositories.ErrTripNotFound
	}
	if trip.Status != models.TripStatusActive {
		return repositories.ErrTripNotActive
	}
	now := time.Now()
	trip.Status = status
	trip.EndTime = &now
	trip.EndOdometerKm = endOdometerKm
	return nil
}

type fakeGeofenceStore struct {
	mu        sync.Mutex
	geofences map[string]*models.Geofence
	events    []models.GeofenceEvent

	insertEventErr error
}

func newFakeGeofenceStore() *fakeGeofenceStore {
	return &fakeGeofenceStore{geofences: make(map[string]*models.Geofence)}
}

func (f *fakeGeofenceStore) Create(_ context.Context, geofence *models.Geofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if geofence.ID.IsZero() {
		geofence.ID = primitive.NewObjectID()
	}
	copied := *geofence
	f.geofences[geofence.ID.Hex()] = &copied
	return nil
}

func (f *fakeGeofenceStore) GetByID(_ context.Context, geofenceID string) (*models.Geofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	geofence, ok := f.geofences[geofenceID]
	if !ok {
		return nil, repositories.ErrGeofenceNotFound
	}
	copied := *geofence
	return &copied, nil
}

func (f *fakeGeofenceStore) Update(_ context.Context, geofence *models.Geofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.geofences[geofence.ID.Hex()]; !ok {
		return repositories.ErrGeofenceNotFound
	}
	copied := *geofence
	f.geofences[geofence.ID.Hex()] = &copied
	return nil
}

func (f *fakeGeofenceStore) Delete(_ context.Context, geofenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.geofences[geofenceID]; !ok {
		return repositories.ErrGeofenceNotFound
	}
	delete(f.geofences, geofenceID)
	return nil
}

func (f *fakeGeofenceStore) List(_ context.Context) ([]models.Geofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Geofence, 0, len(f.geofences))
	for _, g := range f.geofences {
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGeofenceStore) ListActive(_ context.Context) ([]models.Geofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Geofence
	for _, g := range f.geofences {
		if g.IsActive {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGeofenceStore) GetEvents(_ context.Context, req models.GeofenceEventsRequest) ([]models.GeofenceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GeofenceEvent
	for _, e := range f.events {
		if req.VehicleID != "" && e.VehicleID.Hex() != req.VehicleID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeGeofenceStore) InsertEvent(_ context.Context, event *models.GeofenceEvent) error {
	if f.insertEventErr != nil {
		return f.insertEventErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = primitive.NewObjectID()
	f.events = append(f.events, *event)
	return nil
}

// capturePublisher records everything published.
type capturePublisher struct {
	mu        sync.Mutex
	positions []models.LivePositionEntry
	events    []models.GeofenceEvent
}

func (p *capturePublisher) PublishPosition(entry models.LivePositionEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append(p.positions, entry)
}

func (p *capturePublisher) PublishGeofenceEvent(event models.GeofenceEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// captureSink records submitted evaluation jobs.
type captureSink struct {
	mu   sync.Mutex
	jobs []EvaluationJob
	err  error
}

func (s *captureSink) SubmitEvaluation(job EvaluationJob) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}
