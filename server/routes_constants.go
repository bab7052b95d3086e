package server

import "github.com/EduNex-Academy/session-gateway/users"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth routes
	RouteSignIn   = users.SignInPath
	RouteLogin    = "/auth/login"
	RouteCallback = "/auth/callback"
	RouteSession  = "/auth/session"
	RouteRefresh  = "/auth/refresh"
	RouteLogout   = "/auth/logout"

	// Role landing routes
	RouteStudentDashboard    = users.StudentLandingPath
	RouteInstructorDashboard = users.InstructorLandingPath

	// Operational routes
	RouteHealth = "/healthz"
)
