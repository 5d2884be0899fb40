package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrInvalidRef is returned for a malformed secret reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrUnknownProvider is returned when a reference names a provider
	// that is not registered.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrDuplicateProvider is returned when a provider name is registered
	// twice.
	ErrDuplicateProvider = errors.New("secret: provider already registered")

	// ErrNotFound is returned when a provider has no value for a reference.
	ErrNotFound = errors.New("secret: not found")

	// ErrEmpty is returned in strict mode when a secret resolves to "".
	ErrEmpty = errors.New("secret: empty value")
)
