package enums

import "fmt"

// MovementSource identifies the process that produced an inventory movement.
type MovementSource string

const (
	MovementSourceCheckout   MovementSource = "checkout"
	MovementSourceExpiration MovementSource = "expiration"
	MovementSourceSync       MovementSource = "sync"
	MovementSourceManual     MovementSource = "manual"
)

// String implements fmt.Stringer.
func (s MovementSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known movement source.
func (s MovementSource) IsValid() bool {
	switch s {
	case MovementSourceCheckout, MovementSourceExpiration, MovementSourceSync, MovementSourceManual:
		return true
	}
	return false
}

// ParseMovementSource converts raw input into a MovementSource.
func ParseMovementSource(value string) (MovementSource, error) {
	source := MovementSource(value)
	if !source.IsValid() {
		return "", fmt.Errorf("invalid movement source %q", value)
	}
	return source, nil
}

// MovementReferenceType names the entity a movement row points back to.
type MovementReferenceType string

const (
	MovementRefOrder       MovementReferenceType = "order"
	MovementRefReservation MovementReferenceType = "reservation"
	MovementRefCloudEvent  MovementReferenceType = "cloud_event"
)

// String implements fmt.Stringer.
func (r MovementReferenceType) String() string {
	return string(r)
}
