package util

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a random (v4) UUID string. It panics only if the
// system random source is unavailable.
func GenerateUUID() string {
	return uuid.NewString()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
