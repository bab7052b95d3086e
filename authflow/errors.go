package authflow

// Category classifies a failed callback attempt for diagnostics and for the
// error page copy. Role mismatch is deliberately its own category: the
// credential exchange itself succeeded, so it must not be conflated with an
// authentication failure.
type Category string

const (
	CategoryProvider        Category = "provider_error"
	CategoryMissingCode     Category = "missing_code"
	CategoryMissingRole     Category = "missing_role"
	CategoryTimeout         Category = "timeout"
	CategoryInvalidCode     Category = "invalid_code"
	CategoryInvalidResponse Category = "invalid_response"
	CategoryRoleMismatch    Category = "role_mismatch"
	CategoryNetwork         Category = "network"
	CategoryOther           Category = "other"
)

// CallbackError is a categorized, user-facing callback failure.
type CallbackError struct {
	Category Category
	Message  string
}

func (e *CallbackError) Error() string {
	return e.Message
}
