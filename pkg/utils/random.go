package utils

import (
	"github.com/google/uuid"
)

// GenerateRequestID returns a UUID string used to correlate log lines of a
// single request.
func GenerateRequestID() string {
	return uuid.NewString()
}
