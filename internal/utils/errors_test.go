package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "plain error is retried",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "deadline exceeded is retried",
			err:      fmt.Errorf("insert usage record: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "permanent error",
			err:      Permanent(errors.New("invalid payload")),
			expected: false,
		},
		{
			name:     "wrapped permanent error",
			err:      fmt.Errorf("worker: %w", Permanent(errors.New("bad row"))),
			expected: false,
		},
		{
			name:     "cancelled context",
			err:      fmt.Errorf("dequeue: %w", context.Canceled),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRecoverableError(tt.err)
			if result != tt.expected {
				t.Errorf("IsRecoverableError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestPermanentKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Permanent(cause)

	if !errors.Is(err, cause) {
		t.Error("Permanent() should keep the original cause in the chain")
	}
	if !errors.Is(err, ErrPermanent) {
		t.Error("Permanent() should mark the error as permanent")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}
