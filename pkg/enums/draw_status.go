package enums

import "fmt"

// DrawStatus maps to the draw_status_enum enum in Postgres.
type DrawStatus string

const (
	DrawStatusUpcoming   DrawStatus = "upcoming"
	DrawStatusInProgress DrawStatus = "in_progress"
	DrawStatusCompleted  DrawStatus = "completed"
)

var validDrawStatuses = []DrawStatus{
	DrawStatusUpcoming,
	DrawStatusInProgress,
	DrawStatusCompleted,
}

// IsValid reports whether the value matches the canonical draw status enum.
func (s DrawStatus) IsValid() bool {
	for _, candidate := range validDrawStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDrawStatus converts raw input into DrawStatus.
func ParseDrawStatus(value string) (DrawStatus, error) {
	for _, candidate := range validDrawStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draw status %q", value)
}
