package id

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a practically-unique identifier.
// It is equivalent to NewClientID.
func New() string {
	return NewClientID()
}

// NewClientID returns a random (version 4) UUID string.
func NewClientID() string {
	return uuid.New().String()
}

// NewSubscriptionID returns a ULID string.
// IDs created by the same process sort in creation order.
func NewSubscriptionID() string {
	return ulid.Make().String()
}

// IsClientID reports whether s has the shape of a client ID.
func IsClientID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsSubscriptionID reports whether s has the shape of a subscription ID.
func IsSubscriptionID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
