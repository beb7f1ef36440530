package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("run-%s-%s", timestamp, uuid.NewString()[:8])
}

// ValidateRunID rejects IDs that would break the control API path scheme.
func ValidateRunID(runID string) error {
	if strings.ContainsAny(runID, "/:? ") {
		return fmt.Errorf("run id %q cannot contain '/', ':', '?' or spaces", runID)
	}
	return nil
}
