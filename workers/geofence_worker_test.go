package workers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleettrack/models"
	"fleettrack/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeofenceStore struct{}

func (stubGeofenceStore) Create(context.Context, *models.Geofence) error { return nil }

func (stubGeofenceStore) GetByID(context.Context, string) (*models.Geofence, error) {
	return nil, nil
}

func (stubGeofenceStore) Update(context.Context, *models.Geofence) error { return nil }

func (stubGeofenceStore) Delete(context.Context, string) error { return nil }

func (stubGeofenceStore) List(context.Context) ([]models.Geofence, error) { return nil, nil }

func (stubGeofenceStore) ListActive(context.Context) ([]models.Geofence, error) { return nil, nil }

func (stubGeofenceStore) GetEvents(context.Context, models.GeofenceEventsRequest) ([]models.GeofenceEvent, error) {
	return nil, nil
}

func (stubGeofenceStore) InsertEvent(context.Context, *models.GeofenceEvent) error { return nil }

func newTestGeofenceWorker() *GeofenceWorker {
	geofenceService := services.NewGeofenceService(stubGeofenceStore{}, nil)
	detector := services.NewTransitionDetector(stubGeofenceStore{}, services.NoopPublisher{}, 2)
	return NewGeofenceWorker(nil, geofenceService, detector, time.Minute)
}

func evaluationJob(vehicleID string) services.EvaluationJob {
	return services.EvaluationJob{
		VehicleID:  vehicleID,
		ReporterID: vehicleID,
		Latitude:   -36.85,
		Longitude:  174.76,
		RecordedAt: time.Now(),
	}
}

func TestSubmitEvaluationAfterStop(t *testing.T) {
	worker := newTestGeofenceWorker()
	require.NoError(t, worker.Start())
	require.NoError(t, worker.Stop())

	err := worker.SubmitEvaluation(evaluationJob("veh-1"))
	assert.Error(t, err)
}

func TestStopDuringConcurrentSubmits(t *testing.T) {
	worker := newTestGeofenceWorker()
	require.NoError(t, worker.Start())

	// Hammer the queue from several goroutines while Stop closes it. Submits
	// that lose the race must come back as errors, never panic on a send to
	// the closed queue.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := worker.SubmitEvaluation(evaluationJob(fmt.Sprintf("veh-%d-%d", g, i))); err != nil {
					return
				}
			}
		}(g)
	}

	time.Sleep(time.Millisecond)
	require.NoError(t, worker.Stop())
	wg.Wait()

	assert.Error(t, worker.SubmitEvaluation(evaluationJob("veh-late")))
}
