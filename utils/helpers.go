package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func GenerateUUID() string {
	return uuid.New().String()
}

// ObjectIDFromHex converts a hex string to an ObjectID, returning the zero value
// for malformed input. Callers that need to distinguish use IsValidObjectID first.
func ObjectIDFromHex(hex string) primitive.ObjectID {
	objectID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return objectID
}

func IsValidObjectID(hex string) bool {
	_, err := primitive.ObjectIDFromHex(hex)
	return err == nil
}

// FormatUptime renders a duration as a compact human string for health output.
func FormatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%dh%dm%ds", h, m, d/time.Second)
}
