package services

import (
	"fleettrack/models"
	"fleettrack/utils"
)

// TripStats are the derived aggregates for one trip's sample history.
type TripStats struct {
	TotalDistanceKm float64
	AvgSpeed        float64 // km/h
	MaxSpeed        float64 // km/h
	SampleCount     int
}

// TripAggregator recomputes trip aggregates from the full ordered sample history.
// Full recompute is O(n) per batch but immune to incremental drift; callers
// serialize recomputation per trip so concurrent batches cannot lose updates.
type TripAggregator struct{}

func NewTripAggregator() *TripAggregator {
	return &TripAggregator{}
}

// Compute derives aggregates from samples ordered by recordedAt ascending.
// An empty history resets every aggregate to zero.
//
// Distance sums haversine legs between consecutive samples; the first sample has
// no predecessor and contributes nothing. Max speed considers every non-negative
// reported speed. Average speed considers only strictly positive speeds, so a
// vehicle idling at a stop does not drag down the figure.
func (ta *TripAggregator) Compute(samples []models.PositionSample) TripStats {
	stats := TripStats{SampleCount: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	var speedSum float64
	var speedCount int

	for i, sample := range samples {
		if i > 0 {
			prev := samples[i-1]
			meters := utils.HaversineDistance(
				prev.Latitude, prev.Longitude,
				sample.Latitude, sample.Longitude,
			)
			stats.TotalDistanceKm += meters / 1000.0
		}

		if sample.Speed == nil {
			continue
		}
		speed := *sample.Speed
		if speed < 0 {
			continue
		}
		if speed > stats.MaxSpeed {
			stats.MaxSpeed = speed
		}
		if speed > 0 {
			speedSum += speed
			speedCount++
		}
	}

	if speedCount > 0 {
		stats.AvgSpeed = speedSum / float64(speedCount)
	}

	return stats
}
