package storage

import "errors"

var (
	// ErrUsageRecordNotFound is returned by GetByID for an unknown event ID
	ErrUsageRecordNotFound = errors.New("usage record not found")

	// ErrMissingDatabaseURL is returned by NewDB when no DSN is configured
	ErrMissingDatabaseURL = errors.New("database URL is required")
)
