package errors

import "strings"

// Separator joins the individual credential error descriptions reported to
// the client in a single string.
const Separator = " : "

// CredentialError is returned by the credential store when user creation is
// rejected. It carries one description per violated rule (password policy,
// taken email or display name) so callers can report them all at once.
type CredentialError struct {
	Descriptions []string
}

func (e *CredentialError) Error() string {
	return strings.Join(e.Descriptions, Separator)
}

// NewCredentialError builds a CredentialError from rule descriptions.
func NewCredentialError(descriptions ...string) *CredentialError {
	return &CredentialError{Descriptions: descriptions}
}

// ErrorResponse represents a standardized error response for non-200 failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
