package server

import "github.com/EduNex-Academy/session-gateway/users"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Sign-in flow
	s.RegisterRouteHandler("GET "+RouteSignIn, ChainMiddleware(s.SignInPageHandler(), s.StandardMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.StandardMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.StandardMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.StandardMiddleware()...)) // For form_post response mode

	// Session state consumed by the front end
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.StandardMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.StandardMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.StandardMiddleware()...))

	// Role-guarded landing pages
	s.RegisterRouteHandler("GET "+RouteStudentDashboard,
		ChainMiddleware(s.DashboardHandler(users.RoleStudent), s.StandardMiddleware(s.RequireRole(users.RoleStudent))...))
	s.RegisterRouteHandler("GET "+RouteInstructorDashboard,
		ChainMiddleware(s.DashboardHandler(users.RoleInstructor), s.StandardMiddleware(s.RequireRole(users.RoleInstructor))...))
}
