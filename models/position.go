// models/position.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PositionSample is a single raw GPS fix reported by a field device. Samples are
// immutable once inserted; retention-driven cleanup is the only deletion path.
type PositionSample struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID  primitive.ObjectID `json:"vehicleId" bson:"vehicleId"`
	TripID     primitive.ObjectID `json:"tripId,omitempty" bson:"tripId,omitempty"`
	ReporterID primitive.ObjectID `json:"reporterId" bson:"reporterId"`

	// GPS Coordinates
	Latitude  float64  `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
	Altitude  *float64 `json:"altitude,omitempty" bson:"altitude,omitempty"` // meters

	// Movement Data
	Speed    *float64 `json:"speed,omitempty" bson:"speed,omitempty"`       // km/h
	Heading  *float64 `json:"heading,omitempty" bson:"heading,omitempty"`   // degrees 0-360
	Accuracy *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"` // meters

	// Timing: RecordedAt is the device clock, ServerTime the receipt time.
	// Ordering for trip aggregation always uses RecordedAt.
	RecordedAt time.Time `json:"recordedAt" bson:"recordedAt"`
	ServerTime time.Time `json:"serverTime" bson:"serverTime"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Request/Response DTOs

type PositionPointRequest struct {
	Latitude   float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude   *float64 `json:"altitude,omitempty"`
	Speed      *float64 `json:"speed,omitempty" validate:"omitempty,gte=0"`
	Heading    *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lte=360"`
	Accuracy   *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	RecordedAt string   `json:"recordedAt" validate:"required"` // RFC3339
}

type IngestBatchRequest struct {
	VehicleID string                 `json:"vehicleId" validate:"required"`
	TripID    string                 `json:"tripId,omitempty"`
	Points    []PositionPointRequest `json:"points" validate:"required,min=1,max=500"`
}

type IngestBatchResponse struct {
	InsertedCount int    `json:"insertedCount"`
	TripID        string `json:"tripId,omitempty"`
}

// LivePositionEntry is the cached latest-known state for one vehicle. Status is
// derived from speed at read time, never stored.
type LivePositionEntry struct {
	VehicleID  string    `json:"vehicleId"`
	TripID     string    `json:"tripId,omitempty"`
	ReporterID string    `json:"reporterId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Speed      float64   `json:"speed"`   // km/h
	Heading    float64   `json:"heading"` // degrees
	Status     string    `json:"status"`  // moving, slow, stopped
	RecordedAt time.Time `json:"recordedAt"`
}

// Motion status classification thresholds (km/h)
const (
	MotionStatusMoving  = "moving"
	MotionStatusSlow    = "slow"
	MotionStatusStopped = "stopped"
)

type RouteQueryRequest struct {
	StartTime time.Time `json:"startTime" form:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" form:"endTime" validate:"required"`
}

type RouteResponse struct {
	VehicleID string           `json:"vehicleId"`
	Samples   []PositionSample `json:"samples"`
	Trip      *Trip            `json:"trip,omitempty"`
}
