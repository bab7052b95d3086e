// Package guard decides what a protected view should do with the current
// session state. It is a pure decision table; the HTTP wiring lives in the
// server package.
package guard

import (
	"github.com/EduNex-Academy/session-gateway/session"
	"github.com/EduNex-Academy/session-gateway/users"
)

// Decision is the action a protected view takes.
type Decision int

const (
	// DecisionLoading: session truth is still being established; show a
	// loading state and take no redirect action.
	DecisionLoading Decision = iota
	// DecisionAllow: render the protected content.
	DecisionAllow
	// DecisionSignIn: redirect to the sign-in page.
	DecisionSignIn
	// DecisionRedirect: authenticated but wrong role; redirect to Outcome.Path.
	DecisionRedirect
)

// Outcome pairs a Decision with its redirect target when one applies.
type Outcome struct {
	Decision Decision
	Path     string
}

// Decide evaluates the decision table for a required role:
//
//	not initialized            -> Loading (never redirect before truth exists)
//	not authenticated          -> SignIn
//	role matches               -> Allow
//	role differs               -> Redirect to the actual role's landing page
//	                              (sign-in when the role is unrecognised)
func Decide(st session.State, required users.RoleType) Outcome {
	switch {
	case !st.Initialized:
		return Outcome{Decision: DecisionLoading}
	case !st.Authenticated || st.User == nil:
		return Outcome{Decision: DecisionSignIn, Path: users.SignInPath}
	case st.User.Role == required:
		return Outcome{Decision: DecisionAllow}
	default:
		return Outcome{Decision: DecisionRedirect, Path: users.LandingPath(st.User.Role)}
	}
}
