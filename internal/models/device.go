package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is an unauthenticated browser identity carried in a long-lived cookie
type Device struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// NewDevice creates a device with a fresh identifier
func NewDevice() *Device {
	now := time.Now().UTC()
	return &Device{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

// IsValidID reports whether id is a well-formed identifier
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
