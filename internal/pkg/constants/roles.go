package constants

const (
	Superadmin = "superadmin"
	Admin      = "admin"
	Employee   = "employee"
	Investor   = "investor"
)

// ValidRoles is the set of allowed values for Users.role.
var ValidRoles = []string{Investor, Employee, Admin, Superadmin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsStaff reports whether role acts on behalf of the company rather than an investor.
func IsStaff(role string) bool {
	return role == Employee || role == Admin || role == Superadmin
}
