package auth

import "errors"

// Authentication failure modes. Missing/invalid variants never confirm
// that a key exists; revoked does, deliberately, so operators can tell
// a dead key from a wrong one.
var (
	ErrMissingKey       = errors.New("API key required in X-Api-Key header")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
)
