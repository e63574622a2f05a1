package auth

import "errors"

var (
	// ErrKeyNotFound is returned when an API key does not match any configured key
	ErrKeyNotFound = errors.New("API key not found")

	// ErrInvalidToken is returned when a JWT fails validation
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidKeySpec is returned for a malformed "id=hash" entry
	ErrInvalidKeySpec = errors.New("invalid API key entry")
)
