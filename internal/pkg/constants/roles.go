package constants

const (
	Admin = "admin"
	Agent = "agent"
)

// ValidRoles is the set of roles an agents row may carry.
var ValidRoles = []string{Agent, Admin}

// IsValidRole returns true if role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
