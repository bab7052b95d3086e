package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EduNex-Academy/session-gateway/users"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want users.RoleType
		ok   bool
	}{
		{"STUDENT", users.RoleStudent, true},
		{"student", users.RoleStudent, true},
		{"  Instructor ", users.RoleInstructor, true},
		{"ADMIN", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := users.ParseRole(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestLandingPath(t *testing.T) {
	require.Equal(t, users.StudentLandingPath, users.LandingPath(users.RoleStudent))
	require.Equal(t, users.InstructorLandingPath, users.LandingPath(users.RoleInstructor))
	require.Equal(t, users.SignInPath, users.LandingPath(users.RoleType("ADMIN")))
}
