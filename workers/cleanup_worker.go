package workers

import (
	"context"
	"fleettrack/repositories"
	"fleettrack/services"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupWorker runs the periodic maintenance tasks: sample retention, live
// cache reconciliation, and pruning of detector state for vehicles that have
// gone quiet.
type CleanupWorker struct {
	telemetryRepo *repositories.TelemetryRepository
	tripRepo      *repositories.TripRepository
	cache         *services.LivePositionCache
	detector      *services.TransitionDetector

	config CleanupWorkerConfig

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tasks []CleanupTask

	stats      CleanupWorkerStats
	statsMutex sync.RWMutex
}

type CleanupWorkerConfig struct {
	SampleRetentionDays int `json:"sampleRetentionDays"`

	RetentionInterval  time.Duration `json:"retentionInterval"`
	ReconcileInterval  time.Duration `json:"reconcileInterval"`
	StatePruneInterval time.Duration `json:"statePruneInterval"`

	// Detector state older than this is dropped; the next observation for the
	// pair re-baselines without emitting.
	StatePruneAge time.Duration `json:"statePruneAge"`
}

type CleanupTask struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"lastRun"`
	Function func(ctx context.Context) error
}

type CleanupWorkerStats struct {
	TasksExecuted   int64     `json:"tasksExecuted"`
	TasksFailed     int64     `json:"tasksFailed"`
	SamplesDeleted  int64     `json:"samplesDeleted"`
	EntriesEvicted  int64     `json:"entriesEvicted"`
	StatesPruned    int64     `json:"statesPruned"`
	LastCleanupAt   time.Time `json:"lastCleanupAt"`
	StartTime       time.Time `json:"startTime"`
}

func NewCleanupWorker(
	telemetryRepo *repositories.TelemetryRepository,
	tripRepo *repositories.TripRepository,
	cache *services.LivePositionCache,
	detector *services.TransitionDetector,
	retentionDays int,
) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())

	config := CleanupWorkerConfig{
		SampleRetentionDays: retentionDays,
		RetentionInterval:   24 * time.Hour,
		ReconcileInterval:   time.Hour,
		StatePruneInterval:  time.Hour,
		StatePruneAge:       24 * time.Hour,
	}
	if config.SampleRetentionDays <= 0 {
		config.SampleRetentionDays = 30
	}

	cw := &CleanupWorker{
		telemetryRepo: telemetryRepo,
		tripRepo:      tripRepo,
		cache:         cache,
		detector:      detector,
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		stats: CleanupWorkerStats{
			StartTime: time.Now(),
		},
	}

	cw.tasks = []CleanupTask{
		{Name: "sample_retention", Interval: config.RetentionInterval, Function: cw.cleanupSamples},
		{Name: "cache_reconcile", Interval: config.ReconcileInterval, Function: cw.reconcileCache},
		{Name: "detector_prune", Interval: config.StatePruneInterval, Function: cw.pruneDetectorState},
	}

	return cw
}

func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}
	cw.isRunning = true

	logrus.Infof("Starting Cleanup Worker with %d tasks", len(cw.tasks))

	for i := range cw.tasks {
		cw.wg.Add(1)
		go cw.runTask(&cw.tasks[i])
	}

	logrus.Info("Cleanup Worker started successfully")
	return nil
}

func (cw *CleanupWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	logrus.Info("Stopping Cleanup Worker...")

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Cleanup Worker stopped successfully")
	return nil
}

func (cw *CleanupWorker) runTask(task *CleanupTask) {
	defer cw.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cw.executeTask(task)
		case <-cw.ctx.Done():
			return
		}
	}
}

func (cw *CleanupWorker) executeTask(task *CleanupTask) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	task.LastRun = time.Now()

	if err := task.Function(ctx); err != nil {
		logrus.Errorf("Cleanup task %s failed: %v", task.Name, err)
		cw.statsMutex.Lock()
		cw.stats.TasksFailed++
		cw.statsMutex.Unlock()
		return
	}

	cw.statsMutex.Lock()
	cw.stats.TasksExecuted++
	cw.stats.LastCleanupAt = time.Now()
	cw.statsMutex.Unlock()
}

func (cw *CleanupWorker) cleanupSamples(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -cw.config.SampleRetentionDays)

	deleted, err := cw.telemetryRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		logrus.Infof("Deleted %d position samples older than %s", deleted, cutoff.Format(time.RFC3339))
	}

	cw.statsMutex.Lock()
	cw.stats.SamplesDeleted += deleted
	cw.statsMutex.Unlock()
	return nil
}

// reconcileCache drops live entries for vehicles with no active trip, so a
// vehicle whose trip ended elsewhere does not linger on the live map.
func (cw *CleanupWorker) reconcileCache(ctx context.Context) error {
	active, err := cw.tripRepo.ListActiveVehicleIDs(ctx)
	if err != nil {
		return err
	}

	evicted := cw.cache.Retain(active)
	if evicted > 0 {
		logrus.Infof("Evicted %d stale live position entries", evicted)
	}

	cw.statsMutex.Lock()
	cw.stats.EntriesEvicted += int64(evicted)
	cw.statsMutex.Unlock()
	return nil
}

func (cw *CleanupWorker) pruneDetectorState(ctx context.Context) error {
	pruned := cw.detector.Prune(time.Now().Add(-cw.config.StatePruneAge))
	if pruned > 0 {
		logrus.Infof("Pruned %d idle geofence detector states", pruned)
	}

	cw.statsMutex.Lock()
	cw.stats.StatesPruned += int64(pruned)
	cw.statsMutex.Unlock()
	return nil
}

func (cw *CleanupWorker) GetStats() CleanupWorkerStats {
	cw.statsMutex.RLock()
	defer cw.statsMutex.RUnlock()
	return cw.stats
}
