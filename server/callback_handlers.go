package server

import (
	"html/template"
	"net/http"

	"github.com/EduNex-Academy/session-gateway/authflow"
	"github.com/EduNex-Academy/session-gateway/users"
)

// The callback result pages redirect after a countdown; a manual link is
// always offered alongside it.
var resultPageTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <meta http-equiv="refresh" content="{{.Seconds}};url={{.Target}}">
</head>
<body>
    <h1>{{.Title}}</h1>
    <p>{{.Message}}</p>
    <p>You will be redirected in {{.Seconds}} seconds.
       <a href="{{.Target}}">Go now</a></p>
</body>
</html>
`))

var signInPageTemplate = template.Must(template.New("signin").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign in to EduNex</title></head>
<body>
    <h1>Sign in to EduNex</h1>
    <p><a href="{{.LoginRoute}}?role=STUDENT">Sign in as a student</a></p>
    <p><a href="{{.LoginRoute}}?role=INSTRUCTOR">Sign in as an instructor</a></p>
</body>
</html>
`))

type resultPageData struct {
	Title   string
	Message string
	Target  string
	Seconds int
}

func (s *Server) renderResultPage(w http.ResponseWriter, status int, data resultPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := resultPageTemplate.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("result page render failed")
	}
}

func (s *Server) SignInPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := signInPageTemplate.Execute(w, map[string]string{"LoginRoute": RouteLogin}); err != nil {
			s.log.Error().Err(err).Msg("sign-in page render failed")
		}
	}
}

// LoginHandler stashes the chosen role in the tab store and redirects to the
// identity provider. It waits for the startup bootstrap first so a failed
// bootstrap's broad reset cannot wipe a stash written moments earlier.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		if rt == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		role, ok := users.ParseRole(r.URL.Query().Get("role"))
		if !ok {
			http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
			return
		}

		if !rt.WaitReady(r.Context()) {
			// The caller gave up before session truth existed; stashing now
			// would race the bootstrap-failure reset for nobody's benefit.
			return
		}

		authURL, err := s.initiator.Begin(r.Context(), rt.Repo, role)
		if err != nil {
			s.log.Error().Err(err).Msg("could not begin sign-in")
			http.Error(w, "could not begin sign-in", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler receives the identity provider's redirect and hands the
// parameters to the tab's callback processor. Form parsing covers both GET
// query parameters and the form_post response mode.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt := runtimeFromContext(r.Context())
		if rt == nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		// The callback can be a runtime's first request (runtime evicted
		// mid-flow, or a gateway restart with a Redis-backed tab store). The
		// startup bootstrap must settle before the exchange runs: a late
		// bootstrap failure carries a broad tab reset that would otherwise
		// wipe out the session the exchange is about to establish.
		if !rt.WaitReady(r.Context()) {
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed callback parameters", http.StatusBadRequest)
			return
		}

		result := rt.Callback.Process(r.Context(), r.Form)
		countdown := int(s.countdown.Seconds())

		switch result.Status {
		case authflow.StatusSuccess:
			s.renderResultPage(w, http.StatusOK, resultPageData{
				Title:   "Sign-in complete",
				Message: "You are signed in.",
				Target:  result.RedirectPath,
				Seconds: countdown,
			})

		case authflow.StatusSkipped:
			// This code was already handled in this tab; send the viewer
			// wherever the session they already have points.
			target := RouteSignIn
			if st := rt.Store.State(); st.Authenticated && st.User != nil {
				target = users.LandingPath(st.User.Role)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)

		case authflow.StatusError:
			s.renderResultPage(w, http.StatusBadRequest, resultPageData{
				Title:   "Sign-in failed",
				Message: result.Err.Message,
				Target:  RouteSignIn,
				Seconds: countdown,
			})
		}
	}
}
