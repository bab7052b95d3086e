package identity

import "errors"

var (
	// ErrInvalidCode is returned when the identity service rejects an
	// authorization code as expired, already used, or unknown.
	ErrInvalidCode = errors.New("authorization code is invalid or expired")

	// ErrInvalidResponse is returned when an exchange succeeds at the
	// transport level but the body is missing a structurally required field.
	ErrInvalidResponse = errors.New("identity service returned an incomplete credential")
)

// RefreshError reports a rejected durable-credential refresh. It is never
// fatal to the application: callers degrade to an unauthenticated session.
type RefreshError struct {
	StatusCode int
	Message    string
}

func (e *RefreshError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "session refresh was rejected"
}
