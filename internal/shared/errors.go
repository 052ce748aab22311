package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrConflict indicates the resource is referenced elsewhere.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactive indicates a disabled account.
	ErrInactive = errors.New("user is inactive")
	// ErrUnauthenticated indicates a missing or unknown token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the role does not grant the permission.
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyRequests indicates an exhausted or expired one-time code.
	ErrTooManyRequests = errors.New("too many requests")
)

// UserSafeMessage returns an error message that can be shown to API clients.
// Unknown errors are collapsed to a generic message.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInactive),
		errors.Is(err, ErrTooManyRequests):
		return err.Error()
	default:
		return "Internal Server Error"
	}
}
