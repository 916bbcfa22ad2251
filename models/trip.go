// models/trip.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

// Trip is one open/close cycle of a vehicle's operational use, bounded by odometer
// readings. At most one active trip exists per vehicle; completed and cancelled are
// terminal. The stats fields are owned by the trip aggregator.
type Trip struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID primitive.ObjectID `json:"vehicleId" bson:"vehicleId"`
	DriverID  primitive.ObjectID `json:"driverId" bson:"driverId"`

	StartOdometerKm float64  `json:"startOdometerKm" bson:"startOdometerKm"`
	EndOdometerKm   *float64 `json:"endOdometerKm,omitempty" bson:"endOdometerKm,omitempty"`

	StartTime time.Time  `json:"startTime" bson:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Status    string     `json:"status" bson:"status"` // active, completed, cancelled

	// Aggregates recomputed as samples arrive
	TotalDistanceKm float64 `json:"totalDistanceKm" bson:"totalDistanceKm"`
	AvgSpeed        float64 `json:"avgSpeed" bson:"avgSpeed"` // km/h
	MaxSpeed        float64 `json:"maxSpeed" bson:"maxSpeed"` // km/h

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// IsTerminal reports whether the trip can no longer change status.
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}

// Request/Response DTOs

type StartTripRequest struct {
	VehicleID       string  `json:"vehicleId" validate:"required"`
	DriverID        string  `json:"driverId" validate:"required"`
	StartOdometerKm float64 `json:"startOdometerKm" validate:"gte=0"`
}

type EndTripRequest struct {
	EndOdometerKm float64 `json:"endOdometerKm" validate:"gte=0"`
}

type TripStatsResponse struct {
	TripID          string  `json:"tripId"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	AvgSpeed        float64 `json:"avgSpeed"`
	MaxSpeed        float64 `json:"maxSpeed"`
	SampleCount     int     `json:"sampleCount"`
}
