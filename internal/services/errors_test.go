package services_test

import (
	"errors"
	"testing"

	"tubesync/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "push", "dial", "connect to event stream", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "backend", "fetch", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected nil marker to default to transient, got %v", err)
	}
}

func TestWrapMessageComposition(t *testing.T) {
	err := services.Wrap(services.ErrJobFailed, "progress", "poll", "remote reported failure", nil)
	want := "job failed: progress: poll: remote reported failure"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
