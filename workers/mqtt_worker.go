package workers

import (
	"context"
	"encoding/json"
	"fleettrack/models"
	"fleettrack/services"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// MQTTWorker bridges broker-delivered telemetry into the same ingest path the
// HTTP API uses. Field units that cannot hold an HTTP session publish batches
// to a topic instead; payloads are the JSON ingest batch plus the reporter ID,
// since there is no authenticated request to take it from.
type MQTTWorker struct {
	client    mqtt.Client
	telemetry *services.TelemetryService

	broker   string
	clientID string
	topic    string

	isRunning bool
	mutex     sync.RWMutex

	stats      MQTTWorkerStats
	statsMutex sync.RWMutex
}

// mqttBatch is the wire payload on the telemetry topic.
type mqttBatch struct {
	ReporterID string                    `json:"reporterId"`
	Batch      models.IngestBatchRequest `json:"batch"`
}

type MQTTWorkerStats struct {
	MessagesReceived int64     `json:"messagesReceived"`
	MessagesRejected int64     `json:"messagesRejected"`
	SamplesIngested  int64     `json:"samplesIngested"`
	LastMessageAt    time.Time `json:"lastMessageAt"`
	StartTime        time.Time `json:"startTime"`
}

func NewMQTTWorker(broker, clientID, topic string, telemetry *services.TelemetryService) *MQTTWorker {
	return &MQTTWorker{
		telemetry: telemetry,
		broker:    broker,
		clientID:  clientID,
		topic:     topic,
		stats: MQTTWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (mw *MQTTWorker) Start() error {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()

	if mw.isRunning {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(mw.broker).
		SetClientID(mw.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logrus.Infof("MQTT connected to %s, subscribing to %s", mw.broker, mw.topic)
		if token := client.Subscribe(mw.topic, 1, mw.handleMessage); token.Wait() && token.Error() != nil {
			logrus.Errorf("MQTT subscribe failed: %v", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logrus.Warnf("MQTT connection lost: %v", err)
	})

	mw.client = mqtt.NewClient(opts)
	if token := mw.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	mw.isRunning = true
	logrus.Info("MQTT Worker started successfully")
	return nil
}

func (mw *MQTTWorker) Stop() error {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()

	if !mw.isRunning {
		return nil
	}

	logrus.Info("Stopping MQTT Worker...")

	if token := mw.client.Unsubscribe(mw.topic); token.Wait() && token.Error() != nil {
		logrus.Warnf("MQTT unsubscribe failed: %v", token.Error())
	}
	mw.client.Disconnect(250)
	mw.isRunning = false

	logrus.Info("MQTT Worker stopped successfully")
	return nil
}

func (mw *MQTTWorker) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	mw.statsMutex.Lock()
	mw.stats.MessagesReceived++
	mw.stats.LastMessageAt = time.Now()
	mw.statsMutex.Unlock()

	var payload mqttBatch
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		mw.reject()
		logrus.Warnf("Dropping malformed MQTT telemetry on %s: %v", msg.Topic(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := mw.telemetry.IngestBatch(ctx, payload.ReporterID, payload.Batch)
	if err != nil {
		mw.reject()
		logrus.Warnf("Rejected MQTT telemetry batch for vehicle %s: %v", payload.Batch.VehicleID, err)
		return
	}

	mw.statsMutex.Lock()
	mw.stats.SamplesIngested += int64(resp.InsertedCount)
	mw.statsMutex.Unlock()
}

func (mw *MQTTWorker) reject() {
	mw.statsMutex.Lock()
	mw.stats.MessagesRejected++
	mw.statsMutex.Unlock()
}

func (mw *MQTTWorker) GetStats() MQTTWorkerStats {
	mw.statsMutex.RLock()
	defer mw.statsMutex.RUnlock()
	return mw.stats
}
