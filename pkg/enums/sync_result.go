package enums

import "fmt"

// SyncResult records the outcome of the most recent sync attempt for a terminal.
type SyncResult string

const (
	SyncResultOK      SyncResult = "ok"
	SyncResultFailed  SyncResult = "failed"
	SyncResultPending SyncResult = "pending"
)

var validSyncResults = []SyncResult{
	SyncResultOK,
	SyncResultFailed,
	SyncResultPending,
}

// String implements fmt.Stringer.
func (s SyncResult) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncResult.
func (s SyncResult) IsValid() bool {
	for _, candidate := range validSyncResults {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncResult converts raw input into a SyncResult.
func ParseSyncResult(value string) (SyncResult, error) {
	for _, candidate := range validSyncResults {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync result %q", value)
}
