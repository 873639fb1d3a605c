package enums

// RemovalReason explains why a draft item was dropped during revalidation.
type RemovalReason string

const (
	RemovalReasonMissing      RemovalReason = "missing"
	RemovalReasonInsufficient RemovalReason = "insufficient"
)

// String implements fmt.Stringer.
func (r RemovalReason) String() string {
	return string(r)
}
