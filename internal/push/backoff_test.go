package push_test

import (
	"testing"
	"time"

	"tubesync/internal/push"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := push.NewBackoff(100*time.Millisecond, 400*time.Millisecond)

	prev := time.Duration(0)
	for i := 0; i < 5; i++ {
		d := b.Next()
		if d <= 0 {
			t.Fatalf("attempt %d: non-positive delay %s", i, d)
		}
		// 10% jitter either way, so compare against a generous cap.
		if d > 500*time.Millisecond {
			t.Fatalf("attempt %d: delay %s exceeds cap with jitter", i, d)
		}
		if i > 0 && d < prev/4 {
			t.Fatalf("attempt %d: delay %s shrank unexpectedly from %s", i, d, prev)
		}
		prev = d
	}
	if b.Attempts() != 5 {
		t.Fatalf("expected 5 attempts, got %d", b.Attempts())
	}
}

func TestBackoffReset(t *testing.T) {
	b := push.NewBackoff(50*time.Millisecond, time.Second)
	for i := 0; i < 4; i++ {
		b.Next()
	}
	b.Reset()
	if b.Attempts() != 0 {
		t.Fatalf("expected attempts reset, got %d", b.Attempts())
	}
	if d := b.Next(); d > 60*time.Millisecond {
		t.Fatalf("expected delay near initial after reset, got %s", d)
	}
}
