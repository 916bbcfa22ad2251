package services

import (
	"testing"
	"time"

	"fleettrack/models"

	"github.com/stretchr/testify/assert"
)

func sampleAt(lat, lng float64, speed *float64, recordedAt time.Time) models.PositionSample {
	return models.PositionSample{
		Latitude:   lat,
		Longitude:  lng,
		Speed:      speed,
		RecordedAt: recordedAt,
	}
}

func speedPtr(v float64) *float64 { return &v }

func TestComputeEmptyHistory(t *testing.T) {
	stats := NewTripAggregator().Compute(nil)

	assert.Equal(t, 0, stats.SampleCount)
	assert.Equal(t, 0.0, stats.TotalDistanceKm)
	assert.Equal(t, 0.0, stats.AvgSpeed)
	assert.Equal(t, 0.0, stats.MaxSpeed)
}

func TestComputeSingleSample(t *testing.T) {
	now := time.Now()
	stats := NewTripAggregator().Compute([]models.PositionSample{
		sampleAt(-36.8485, 174.7633, speedPtr(42), now),
	})

	assert.Equal(t, 1, stats.SampleCount)
	assert.Equal(t, 0.0, stats.TotalDistanceKm)
	assert.Equal(t, 42.0, stats.MaxSpeed)
	assert.Equal(t, 42.0, stats.AvgSpeed)
}

func TestComputeDistanceSumsLegs(t *testing.T) {
	now := time.Now()
	// Two legs of ~111 km each along a meridian.
	stats := NewTripAggregator().Compute([]models.PositionSample{
		sampleAt(0, 0, nil, now),
		sampleAt(1, 0, nil, now.Add(time.Hour)),
		sampleAt(2, 0, nil, now.Add(2*time.Hour)),
	})

	assert.Equal(t, 3, stats.SampleCount)
	assert.InDelta(t, 222.4, stats.TotalDistanceKm, 0.5)
}

func TestComputeShortLeg(t *testing.T) {
	now := time.Now()
	// ~1000 m apart along a meridian (0.009 degrees of latitude)
	stats := NewTripAggregator().Compute([]models.PositionSample{
		sampleAt(0, 0, nil, now),
		sampleAt(0.009, 0, nil, now.Add(time.Minute)),
	})

	assert.InDelta(t, 1.0, stats.TotalDistanceKm, 0.01)
}

func TestComputeAvgSkipsIdleSamples(t *testing.T) {
	now := time.Now()
	stats := NewTripAggregator().Compute([]models.PositionSample{
		sampleAt(0, 0, speedPtr(0), now),
		sampleAt(0, 0, speedPtr(10), now.Add(time.Minute)),
		sampleAt(0, 0, speedPtr(0), now.Add(2*time.Minute)),
		sampleAt(0, 0, speedPtr(20), now.Add(3*time.Minute)),
		sampleAt(0, 0, nil, now.Add(4*time.Minute)),
	})

	// Zero and missing speeds do not drag the average down.
	assert.Equal(t, 15.0, stats.AvgSpeed)
	assert.Equal(t, 20.0, stats.MaxSpeed)
	assert.Equal(t, 5, stats.SampleCount)
}

func TestComputeIgnoresNegativeSpeed(t *testing.T) {
	now := time.Now()
	stats := NewTripAggregator().Compute([]models.PositionSample{
		sampleAt(0, 0, speedPtr(-5), now),
		sampleAt(0, 0, speedPtr(30), now.Add(time.Minute)),
	})

	assert.Equal(t, 30.0, stats.AvgSpeed)
	assert.Equal(t, 30.0, stats.MaxSpeed)
}
