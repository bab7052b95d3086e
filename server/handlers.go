package server

import (
	"encoding/json"
	"net/http"

	"github.com/EduNex-Academy/session-gateway/users"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// sessionResponse is the snapshot the front end polls. The access credential
// is included because the UI attaches it to marketplace API calls.
type sessionResponse struct {
	User            *users.User `json:"user,omitempty"`
	AccessToken     string      `json:"accessToken,omitempty"`
	TokenType       string      `json:"tokenType,omitempty"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsInitialized   bool        `json:"isInitialized"`
}

// SessionHandler returns the tab's session state. It waits for the startup
// bootstrap when it is still in flight, bounded by the request's lifetime;
// when the wait is abandoned the response says so via isInitialized=false,
// carrying the mirrored token (if still valid) for reload continuity.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		if rt == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		rt.WaitReady(r.Context())

		st := rt.Store.State()
		resp := sessionResponse{
			User:            st.User,
			IsAuthenticated: st.Authenticated,
			IsInitialized:   st.Initialized,
		}
		if st.Credential != nil {
			resp.AccessToken = st.Credential.AccessToken
			resp.TokenType = st.Credential.TokenType
		} else if !st.Initialized {
			if tok := rt.Cache.Get(r.Context()); tok != nil {
				resp.AccessToken = tok.AccessToken
				resp.TokenType = tok.TokenType
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshHandler forces a credential refresh for the tab. Concurrent calls
// collapse inside the identity client; a rejection degrades the session to
// unauthenticated rather than erroring the tab out.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		if rt == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp, err := rt.Identity.Refresh(r.Context())
		if err != nil {
			s.log.Debug().Err(err).Msg("manual refresh rejected")
			rt.Cache.Clear(r.Context())
			rt.Store.Logout()
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"message": err.Error(),
			})
			return
		}

		// The mirror subscriber picks this up and rewrites the cached token.
		rt.Store.UpdateTokens(resp.User, &resp.AccessCredential)
		writeJSON(w, http.StatusOK, sessionResponse{
			User:            resp.User,
			AccessToken:     resp.AccessToken,
			TokenType:       resp.TokenType,
			IsAuthenticated: true,
			IsInitialized:   rt.Store.State().Initialized,
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		if rt == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		rt.Store.Logout()
		w.WriteHeader(http.StatusNoContent)
	}
}

// DashboardHandler is the minimal protected landing content for a role. The
// real course screens live in the front end; this exists so the guard has a
// destination to protect.
func (s *Server) DashboardHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		st := rt.Store.State()
		writeJSON(w, http.StatusOK, map[string]any{
			"portal": string(role),
			"user":   st.User,
		})
	}
}
