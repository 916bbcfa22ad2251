// models/geofence.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GeofenceType string

const (
	GeofenceTypeCircle  GeofenceType = "circle"
	GeofenceTypePolygon GeofenceType = "polygon"
)

const (
	GeofenceEventEnter = "enter"
	GeofenceEventExit  = "exit"
)

type GeoVertex struct {
	Latitude  float64 `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
}

// Geofence is a named geographic region with enter/exit alerting flags. Exactly one
// geometry representation matches Type: circle carries center + radius, polygon
// carries an ordered vertex list (implicitly closed, last connects to first).
type Geofence struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Description string             `json:"description" bson:"description"`
	Type        GeofenceType       `json:"type" bson:"type" validate:"required,oneof=circle polygon"`

	IsActive     bool `json:"isActive" bson:"isActive"`
	AlertOnEnter bool `json:"alertOnEnter" bson:"alertOnEnter"`
	AlertOnExit  bool `json:"alertOnExit" bson:"alertOnExit"`

	// Circle geometry
	CenterLat    float64 `json:"centerLat,omitempty" bson:"centerLat,omitempty"`
	CenterLng    float64 `json:"centerLng,omitempty" bson:"centerLng,omitempty"`
	RadiusMeters float64 `json:"radiusMeters,omitempty" bson:"radiusMeters,omitempty"`

	// Polygon geometry
	Vertices []GeoVertex `json:"vertices,omitempty" bson:"vertices,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// GeofenceEvent records one detected containment transition. Events are immutable
// and outlive the geofence definition that produced them.
type GeofenceEvent struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	GeofenceID   primitive.ObjectID `json:"geofenceId" bson:"geofenceId"`
	GeofenceName string             `json:"geofenceName" bson:"geofenceName"`
	VehicleID    primitive.ObjectID `json:"vehicleId" bson:"vehicleId"`
	ReporterID   primitive.ObjectID `json:"reporterId" bson:"reporterId"`
	EventType    string             `json:"eventType" bson:"eventType"` // enter, exit
	Latitude     float64            `json:"latitude" bson:"latitude"`
	Longitude    float64            `json:"longitude" bson:"longitude"`
	RecordedAt   time.Time          `json:"recordedAt" bson:"recordedAt"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// Request/Response DTOs

type CreateGeofenceRequest struct {
	Name         string       `json:"name" validate:"required,min=1,max=100"`
	Description  string       `json:"description"`
	Type         GeofenceType `json:"type" validate:"required,oneof=circle polygon"`
	IsActive     *bool        `json:"isActive,omitempty"`
	AlertOnEnter bool         `json:"alertOnEnter"`
	AlertOnExit  bool         `json:"alertOnExit"`
	CenterLat    *float64     `json:"centerLat,omitempty"`
	CenterLng    *float64     `json:"centerLng,omitempty"`
	RadiusMeters *float64     `json:"radiusMeters,omitempty"`
	Vertices     []GeoVertex  `json:"vertices,omitempty"`
}

type UpdateGeofenceRequest struct {
	Name         *string      `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description  *string      `json:"description,omitempty"`
	Type         GeofenceType `json:"type,omitempty" validate:"omitempty,oneof=circle polygon"`
	IsActive     *bool        `json:"isActive,omitempty"`
	AlertOnEnter *bool        `json:"alertOnEnter,omitempty"`
	AlertOnExit  *bool        `json:"alertOnExit,omitempty"`
	CenterLat    *float64     `json:"centerLat,omitempty"`
	CenterLng    *float64     `json:"centerLng,omitempty"`
	RadiusMeters *float64     `json:"radiusMeters,omitempty"`
	Vertices     []GeoVertex  `json:"vertices,omitempty"`
}

type PointCheckRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ContainmentResult is one geofence's evaluation outcome for a point.
type ContainmentResult struct {
	GeofenceID   string `json:"geofenceId"`
	GeofenceName string `json:"geofenceName"`
	IsInside     bool   `json:"isInside"`
}

type GeofenceEventsRequest struct {
	VehicleID string     `json:"vehicleId" form:"vehicleId"`
	StartTime *time.Time `json:"startTime,omitempty" form:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty" form:"endTime"`
	Limit     int        `json:"limit" form:"limit"`
}
