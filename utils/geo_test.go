package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Same point
	assert.Equal(t, 0.0, HaversineDistance(-36.8485, 174.7633, -36.8485, 174.7633))

	// One degree of latitude is roughly 111 km
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)

	// Wellington to Auckland, roughly 494 km
	d = HaversineDistance(-41.2866, 174.7756, -36.8485, 174.7633)
	assert.InDelta(t, 494000, d, 5000)
}

func TestPointInCircle(t *testing.T) {
	centerLat, centerLng := -36.8485, 174.7633

	assert.True(t, PointInCircle(centerLat, centerLng, centerLat, centerLng, 10))

	// ~111m north of center
	assert.True(t, PointInCircle(centerLat+0.001, centerLng, centerLat, centerLng, 150))
	assert.False(t, PointInCircle(centerLat+0.001, centerLng, centerLat, centerLng, 50))
}

func TestPointInCircleBoundaryInclusive(t *testing.T) {
	// A point exactly on the radius counts as inside.
	d := HaversineDistance(0, 0, 0.001, 0)
	assert.True(t, PointInCircle(0.001, 0, 0, 0, d))
}

func TestPointInPolygon(t *testing.T) {
	square := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 10},
		{Latitude: 10, Longitude: 10},
		{Latitude: 10, Longitude: 0},
	}

	assert.True(t, PointInPolygon(5, 5, square))
	assert.False(t, PointInPolygon(15, 5, square))
	assert.False(t, PointInPolygon(-1, 5, square))
}

func TestPointInPolygonConcave(t *testing.T) {
	// L-shape: the notch at the top right is outside.
	lShape := []Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 10},
		{Latitude: 5, Longitude: 10},
		{Latitude: 5, Longitude: 5},
		{Latitude: 10, Longitude: 5},
		{Latitude: 10, Longitude: 0},
	}

	assert.True(t, PointInPolygon(2, 8, lShape))
	assert.True(t, PointInPolygon(8, 2, lShape))
	assert.False(t, PointInPolygon(8, 8, lShape))
}

func TestPointInPolygonDegenerate(t *testing.T) {
	assert.False(t, PointInPolygon(0, 0, nil))
	assert.False(t, PointInPolygon(0, 0, []Coordinate{{0, 0}, {1, 1}}))
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(0, 0))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.True(t, IsValidCoordinate(90, -180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.1))
}

func TestCalculateBearing(t *testing.T) {
	// Due north
	assert.InDelta(t, 0, CalculateBearing(0, 0, 1, 0), 0.5)
	// Due east
	assert.InDelta(t, 90, CalculateBearing(0, 0, 0, 1), 0.5)
	// Due south
	assert.InDelta(t, 180, CalculateBearing(1, 0, 0, 0), 0.5)
}
