package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/EduNex-Academy/session-gateway/guard"
	"github.com/EduNex-Academy/session-gateway/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRuntime stores the tab runtime resolved for this request
	ContextKeyRuntime ContextKey = "tab_runtime"
)

// tabCookieName identifies the browser tab session. The cookie carries no
// Max-Age, so the browser drops it when the session ends, which is exactly
// the lifetime the volatile tab store is supposed to have.
const tabCookieName = "edunex_tab"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// StandardMiddleware is the chain every route gets, optionally extended.
func (s *Server) StandardMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.FrameSecurityMiddleware,
		s.CorsMiddleware,
		s.TabSessionMiddleware,
	}
	chained = append(chained, mw...)
	return chained
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			logRoute(r.Method, r.URL.Path)
		}
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Prevent embedding on other sites
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		next(w, r)
	}
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			next(w, r)
			return
		}

		allowed := s.config.GetAllowedOrigins().IsAllowedOrigin(origin)
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
				w.Header().Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// TabSessionMiddleware resolves the tab runtime for the request, assigning a
// tab cookie on first sight, and stores the runtime in the request context.
func (s *Server) TabSessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tabID string
		if cookie, err := r.Cookie(tabCookieName); err == nil && cookie.Value != "" {
			tabID = cookie.Value
		} else {
			tabID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     tabCookieName,
				Value:    tabID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		rt, err := s.runtimes.Resolve(tabID)
		if err != nil {
			s.log.Error().Err(err).Msg("could not resolve tab runtime")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyRuntime, rt)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole applies the guard decision table in front of a protected route.
// While session truth is still being established it answers 503 with a
// Retry-After rather than making any routing decision.
func (s *Server) RequireRole(required users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rt := runtimeFromContext(r.Context())
			if rt == nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			outcome := guard.Decide(rt.Store.State(), required)
			switch outcome.Decision {
			case guard.DecisionAllow:
				next(w, r)
			case guard.DecisionLoading:
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "initializing",
				})
			case guard.DecisionSignIn, guard.DecisionRedirect:
				http.Redirect(w, r, outcome.Path, http.StatusSeeOther)
			}
		}
	}
}

func runtimeFromContext(ctx context.Context) *Runtime {
	rt, _ := ctx.Value(ContextKeyRuntime).(*Runtime)
	return rt
}
