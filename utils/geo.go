package utils

import (
	"math"
)

const (
	EarthRadiusKm = 6371.0
	EarthRadiusM  = 6371000.0
	DegToRad      = math.Pi / 180.0
	RadToDeg      = 180.0 / math.Pi
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HaversineDistance calculates the great-circle distance between two coordinates
// in meters using the Haversine formula.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lon1Rad := lon1 * DegToRad
	lat2Rad := lat2 * DegToRad
	lon2Rad := lon2 * DegToRad

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// PointInCircle checks whether a coordinate lies within radiusMeters of the center.
// Boundary-inclusive: a point exactly radiusMeters away is inside.
func PointInCircle(lat, lon, centerLat, centerLon, radiusMeters float64) bool {
	return HaversineDistance(lat, lon, centerLat, centerLon) <= radiusMeters
}

// PointInPolygon checks if a point is inside a polygon using the ray casting
// algorithm. The vertex list is treated as implicitly closed. Polygons with fewer
// than 3 vertices are degenerate and always return false; callers validate geometry
// before storing it, so that case never reaches evaluation.
func PointInPolygon(lat, lon float64, polygon []Coordinate) bool {
	if len(polygon) < 3 {
		return false
	}

	x, y := lat, lon
	inside := false

	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		xi, yi := polygon[i].Latitude, polygon[i].Longitude
		xj, yj := polygon[j].Latitude, polygon[j].Longitude

		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CalculateBearing calculates the bearing between two coordinates
func CalculateBearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lon1Rad := lon1 * DegToRad
	lat2Rad := lat2 * DegToRad
	lon2Rad := lon2 * DegToRad

	dlon := lon2Rad - lon1Rad

	y := math.Sin(dlon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dlon)

	bearing := math.Atan2(y, x) * RadToDeg
	return math.Mod(bearing+360, 360)
}

// CalculateCenter calculates the center point of multiple coordinates
func CalculateCenter(coordinates []Coordinate) Coordinate {
	if len(coordinates) == 0 {
		return Coordinate{0, 0}
	}

	var latSum, lonSum float64
	for _, coord := range coordinates {
		latSum += coord.Latitude
		lonSum += coord.Longitude
	}

	return Coordinate{
		Latitude:  latSum / float64(len(coordinates)),
		Longitude: lonSum / float64(len(coordinates)),
	}
}
