package services_test

import (
	"errors"
	"strings"
	"testing"

	"vintner/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTimeout, "llm", "validate", "batch failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"llm", "validate", "batch failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "vision", "identify", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("nil marker should default to transient, got %v", err)
	}
}

func TestRecoverable(t *testing.T) {
	if services.Recoverable(services.Wrap(services.ErrConfiguration, "llm", "", "missing key", nil)) {
		t.Fatal("configuration failures should not be recoverable")
	}
	if !services.Recoverable(services.Wrap(services.ErrTimeout, "llm", "", "", nil)) {
		t.Fatal("timeouts should be recoverable")
	}
	if !services.Recoverable(nil) {
		t.Fatal("nil error should be recoverable")
	}
}
