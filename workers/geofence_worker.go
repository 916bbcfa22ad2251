package workers

import (
	"context"
	"fleettrack/models"
	"fleettrack/services"
	"fleettrack/utils"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// GeofenceWorker runs containment evaluation off the ingest hot path. Ingest
// submits EvaluationJobs; a small worker pool evaluates each position against a
// cached copy of the active geofence set and feeds the results to the
// transition detector.
//
// The cache refreshes on a timer and immediately on a redis nudge published by
// the geofence service after any definition change, so deactivating a geofence
// takes effect without a restart.
type GeofenceWorker struct {
	redis *redis.Client

	geofenceService *services.GeofenceService
	detector        *services.TransitionDetector

	config GeofenceWorkerConfig

	queue chan services.EvaluationJob

	// Cached active geofence set
	geofences  []models.Geofence
	cacheMutex sync.RWMutex

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      GeofenceWorkerStats
	statsMutex sync.RWMutex
}

type GeofenceWorkerConfig struct {
	WorkerCount          int           `json:"workerCount"`
	QueueSize            int           `json:"queueSize"`
	ProcessingTimeout    time.Duration `json:"processingTimeout"`
	CacheRefreshInterval time.Duration `json:"cacheRefreshInterval"`
}

type GeofenceWorkerStats struct {
	JobsProcessed   int64     `json:"jobsProcessed"`
	JobsDropped     int64     `json:"jobsDropped"`
	EventsEmitted   int64     `json:"eventsEmitted"`
	EntersEmitted   int64     `json:"entersEmitted"`
	ExitsEmitted    int64     `json:"exitsEmitted"`
	CacheRefreshes  int64     `json:"cacheRefreshes"`
	LastProcessedAt time.Time `json:"lastProcessedAt"`
	QueueLength     int       `json:"queueLength"`
	StartTime       time.Time `json:"startTime"`
}

func NewGeofenceWorker(
	redisClient *redis.Client,
	geofenceService *services.GeofenceService,
	detector *services.TransitionDetector,
	refreshInterval time.Duration,
) *GeofenceWorker {
	ctx, cancel := context.WithCancel(context.Background())

	config := GeofenceWorkerConfig{
		WorkerCount:          3,
		QueueSize:            500,
		ProcessingTimeout:    15 * time.Second,
		CacheRefreshInterval: refreshInterval,
	}
	if config.CacheRefreshInterval <= 0 {
		config.CacheRefreshInterval = time.Minute
	}

	return &GeofenceWorker{
		redis:           redisClient,
		geofenceService: geofenceService,
		detector:        detector,
		config:          config,
		queue:           make(chan services.EvaluationJob, config.QueueSize),
		ctx:             ctx,
		cancel:          cancel,
		stats: GeofenceWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (gw *GeofenceWorker) Start() error {
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if gw.isRunning {
		return nil
	}
	gw.isRunning = true

	logrus.Infof("Starting Geofence Worker with %d workers", gw.config.WorkerCount)

	// Prime the cache so the first jobs don't race an empty set.
	gw.refreshCache()

	for i := 0; i < gw.config.WorkerCount; i++ {
		gw.wg.Add(1)
		go gw.worker(i)
	}

	gw.wg.Add(1)
	go gw.cacheRefresher()

	if gw.redis != nil {
		gw.wg.Add(1)
		go gw.changeListener()
	}

	logrus.Info("Geofence Worker started successfully")
	return nil
}

func (gw *GeofenceWorker) Stop() error {
	gw.mutex.Lock()
	defer gw.mutex.Unlock()

	if !gw.isRunning {
		return nil
	}

	logrus.Info("Stopping Geofence Worker...")

	gw.cancel()
	gw.isRunning = false

	close(gw.queue)
	gw.wg.Wait()

	logrus.Info("Geofence Worker stopped successfully")
	return nil
}

// SubmitEvaluation implements services.EvaluationSink. A full queue rejects the
// job; the next batch from the same vehicle re-establishes its state.
//
// The read lock is held across the send so Stop, which closes the queue under
// the write lock, cannot close it between the running check and the send. The
// send itself never blocks, so the lock is held only briefly.
func (gw *GeofenceWorker) SubmitEvaluation(job services.EvaluationJob) error {
	gw.mutex.RLock()
	defer gw.mutex.RUnlock()

	if !gw.isRunning {
		return utils.NewServiceError("GEOFENCE_WORKER_NOT_RUNNING", "Geofence worker is not running")
	}

	select {
	case gw.queue <- job:
		return nil
	default:
		gw.statsMutex.Lock()
		gw.stats.JobsDropped++
		gw.statsMutex.Unlock()
		return utils.NewServiceError("GEOFENCE_QUEUE_FULL", "Geofence queue is full")
	}
}

func (gw *GeofenceWorker) worker(workerID int) {
	defer gw.wg.Done()

	logrus.Infof("Geofence worker %d started", workerID)

	for {
		select {
		case job, ok := <-gw.queue:
			if !ok {
				logrus.Infof("Geofence worker %d stopping", workerID)
				return
			}
			gw.processJob(job, workerID)

		case <-gw.ctx.Done():
			logrus.Infof("Geofence worker %d stopping due to context cancellation", workerID)
			return
		}
	}
}

func (gw *GeofenceWorker) processJob(job services.EvaluationJob, workerID int) {
	ctx, cancel := context.WithTimeout(context.Background(), gw.config.ProcessingTimeout)
	defer cancel()

	geofences := gw.activeGeofences()
	if len(geofences) == 0 {
		gw.markProcessed()
		return
	}

	logrus.Debugf("Worker %d evaluating vehicle %s against %d geofences", workerID, job.VehicleID, len(geofences))

	for i := range geofences {
		geofence := &geofences[i]

		event, err := gw.detector.Observe(ctx, services.Observation{
			VehicleID:  job.VehicleID,
			ReporterID: job.ReporterID,
			Geofence:   geofence,
			Latitude:   job.Latitude,
			Longitude:  job.Longitude,
			RecordedAt: job.RecordedAt,
			IsInside:   services.Contains(geofence, job.Latitude, job.Longitude),
		})
		if err != nil {
			logrus.Errorf("Failed to persist geofence event for vehicle %s: %v", job.VehicleID, err)
			continue
		}
		if event != nil {
			gw.markEmitted(event.EventType)
		}
	}

	gw.markProcessed()
}

func (gw *GeofenceWorker) activeGeofences() []models.Geofence {
	gw.cacheMutex.RLock()
	defer gw.cacheMutex.RUnlock()
	return gw.geofences
}

func (gw *GeofenceWorker) cacheRefresher() {
	defer gw.wg.Done()

	ticker := time.NewTicker(gw.config.CacheRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gw.refreshCache()
		case <-gw.ctx.Done():
			return
		}
	}
}

// changeListener refreshes the cache as soon as a definition changes, instead
// of waiting out the timer.
func (gw *GeofenceWorker) changeListener() {
	defer gw.wg.Done()

	pubsub := gw.redis.Subscribe(gw.ctx, services.GeofenceChangedChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			logrus.Debugf("Geofence change notification: %s", msg.Payload)
			gw.refreshCache()

		case <-gw.ctx.Done():
			return
		}
	}
}

func (gw *GeofenceWorker) refreshCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	geofences, err := gw.geofenceService.ListActiveGeofences(ctx)
	if err != nil {
		logrus.Errorf("Failed to refresh geofence cache: %v", err)
		return
	}

	gw.cacheMutex.Lock()
	gw.geofences = geofences
	gw.cacheMutex.Unlock()

	gw.statsMutex.Lock()
	gw.stats.CacheRefreshes++
	gw.statsMutex.Unlock()

	logrus.Debugf("Geofence cache refreshed: %d active geofences", len(geofences))
}

func (gw *GeofenceWorker) markProcessed() {
	gw.statsMutex.Lock()
	gw.stats.JobsProcessed++
	gw.stats.LastProcessedAt = time.Now()
	gw.stats.QueueLength = len(gw.queue)
	gw.statsMutex.Unlock()
}

func (gw *GeofenceWorker) markEmitted(eventType string) {
	gw.statsMutex.Lock()
	gw.stats.EventsEmitted++
	if eventType == models.GeofenceEventEnter {
		gw.stats.EntersEmitted++
	} else if eventType == models.GeofenceEventExit {
		gw.stats.ExitsEmitted++
	}
	gw.statsMutex.Unlock()
}

func (gw *GeofenceWorker) GetStats() GeofenceWorkerStats {
	gw.statsMutex.RLock()
	defer gw.statsMutex.RUnlock()
	return gw.stats
}
