package logging

import (
	"errors"
	"fmt"
	"testing"
)

func TestOperationErrorFormatting(t *testing.T) {
	base := errors.New("connection refused")

	err := NewOperationError("cache.set", "req-1", base)
	if got := err.Error(); got != "cache.set (request_id=req-1): connection refused" {
		t.Fatalf("unexpected message: %s", got)
	}

	err = NewOperationError("cache.set", "", base)
	if got := err.Error(); got != "cache.set: connection refused" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestOperationErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := NewOperationError("repository.save", "req-2", fmt.Errorf("outer: %w", base))

	if !errors.Is(wrapped, base) {
		t.Fatal("errors.Is should reach the base error")
	}

	var opErr *OperationError
	if !errors.As(wrapped, &opErr) {
		t.Fatalf("errors.As failed for %T", wrapped)
	}
	if opErr.Operation != "repository.save" || opErr.RequestID != "req-2" {
		t.Fatalf("unexpected metadata: %+v", opErr)
	}
}

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("anything", "req", nil); err != nil {
		t.Fatalf("nil input must produce nil error, got %v", err)
	}
}
