package domain

import (
	"fmt"

	"github.com/avelichko/memorylane/internal/memory/models"
)

// CanTransition reports whether the indexing status may advance from one
// state to another. Terminal states never transition forward; the only way
// back is an explicit re-index, which resets the record to pending and is
// validated separately.
func CanTransition(from, to models.IndexingStatus) bool {
	switch from {
	case models.IndexingPending:
		return to == models.IndexingRunning || to == models.IndexingFailed
	case models.IndexingRunning:
		return to == models.IndexingCompleted ||
			to == models.IndexingFailed ||
			to == models.IndexingTimeout
	default:
		return false
	}
}

func IsTerminal(s models.IndexingStatus) bool {
	switch s {
	case models.IndexingCompleted, models.IndexingFailed, models.IndexingTimeout:
		return true
	}
	return false
}

func ValidateTransition(from, to models.IndexingStatus) error {
	if from == to {
		return nil
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid transition: %s -> %s", from, to)
	}
	return nil
}
