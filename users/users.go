package users

import "strings"

// RoleType identifies which side of the marketplace an account belongs to.
// The identity service is the authority for a user's role; this package only
// interprets it for routing decisions.
type RoleType string

const (
	RoleStudent    RoleType = "STUDENT"
	RoleInstructor RoleType = "INSTRUCTOR"
)

// Route targets keyed by role. SignInPath is the fallback destination for
// unauthenticated viewers and for roles this build does not recognise.
const (
	SignInPath            = "/auth/signin"
	StudentLandingPath    = "/student/dashboard"
	InstructorLandingPath = "/instructor/dashboard"
)

// User is the profile record supplied by the identity service alongside an
// access credential. It is opaque to the session core beyond the Role field.
type User struct {
	ID        string   `json:"id,omitempty"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Role      RoleType `json:"role,omitempty"`
}

// ParseRole normalises a role string to a known RoleType.
// Returns false for anything that is not a recognised role.
func ParseRole(s string) (RoleType, bool) {
	switch RoleType(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleInstructor:
		return RoleInstructor, true
	default:
		return "", false
	}
}

// LandingPath returns the role-keyed destination used after a successful
// sign-in. Unrecognised roles fall back to the sign-in page.
func LandingPath(role RoleType) string {
	switch role {
	case RoleStudent:
		return StudentLandingPath
	case RoleInstructor:
		return InstructorLandingPath
	default:
		return SignInPath
	}
}
