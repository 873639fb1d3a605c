package enums

import "fmt"

// StaffRole is the access level of a POS user.
type StaffRole string

const (
	StaffRoleAdmin   StaffRole = "admin"
	StaffRoleManager StaffRole = "manager"
	StaffRoleCashier StaffRole = "cashier"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleManager,
	StaffRoleCashier,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known staff role.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if r == candidate {
			return true
		}
	}
	return false
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if StaffRole(value) == candidate {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
