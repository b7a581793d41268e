package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level error kinds. Every AppError unwraps to exactly one of these.
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorForbidden          = errors.New("forbidden")
	ErrorBadRequest         = errors.New("bad request")

	// Token errors (invalid or malformed token, elapsed expiry).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AppError is a classified error handed to callers of the auth service.
// Kind is one of the sentinel errors above, Code is a stable machine-readable
// identifier and Message is safe to show to the end user.
type AppError struct {
	Kind    error
	Code    string
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// AsAppError reports whether err (or anything it wraps) is an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func InvalidCredentials() *AppError {
	return &AppError{
		Kind:    ErrorInvalidCredentials,
		Code:    "INVALID_CREDENTIALS",
		Message: "Invalid username or password",
	}
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return &AppError{Kind: ErrorUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "Forbidden"
	}
	return &AppError{Kind: ErrorForbidden, Code: "FORBIDDEN", Message: message}
}

// NotFound builds a not-found error for the named entity, e.g.
// NotFound("user", "email") -> USER_NOT_FOUND / "User with email not found".
func NotFound(entity, field string) *AppError {
	if entity == "" {
		return &AppError{Kind: ErrorNotFound, Code: "NOT_FOUND", Message: "Not found"}
	}
	if field == "" {
		field = "id"
	}
	return &AppError{
		Kind:    ErrorNotFound,
		Code:    toUpperSnake(entity) + "_NOT_FOUND",
		Message: capitalize(entity) + " with " + field + " not found",
	}
}

func BadRequest(message string) *AppError {
	if message == "" {
		message = "Bad Request"
	}
	return &AppError{Kind: ErrorBadRequest, Code: "BAD_REQUEST", Message: message}
}

// Conflict builds an error for a violated unique field, e.g. Conflict("email").
func Conflict(field string) *AppError {
	if field == "" {
		return &AppError{Kind: ErrorConflict, Code: "CONFLICT", Message: "Conflict"}
	}
	return &AppError{
		Kind:    ErrorConflict,
		Code:    toUpperSnake(field) + "_CONFLICT",
		Message: capitalize(field) + " already exists",
	}
}

func Internal(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &AppError{Kind: ErrorInternal, Code: "INTERNAL_SERVER_ERROR", Message: message}
}

func toUpperSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			if i > 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == ' ' || c == '-':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
