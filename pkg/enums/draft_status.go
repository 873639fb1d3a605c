package enums

import "fmt"

// DraftStatus tracks whether a checkout draft is active or already converted.
type DraftStatus string

const (
	DraftStatusActive    DraftStatus = "active"
	DraftStatusConverted DraftStatus = "converted"
)

var validDraftStatuses = []DraftStatus{
	DraftStatusActive,
	DraftStatusConverted,
}

// String implements fmt.Stringer.
func (d DraftStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DraftStatus.
func (d DraftStatus) IsValid() bool {
	for _, candidate := range validDraftStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDraftStatus converts raw input into a DraftStatus.
func ParseDraftStatus(value string) (DraftStatus, error) {
	for _, candidate := range validDraftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draft status %q", value)
}
