package utils

import (
	"context"
	"errors"
	"fmt"
)

// ErrPermanent marks failures that retrying will not fix (bad payloads,
// constraint violations). Queue workers send these straight to the DLQ.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so that IsRecoverableError reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsRecoverableError reports whether a retry could succeed.
func IsRecoverableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
