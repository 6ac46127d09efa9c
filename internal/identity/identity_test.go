package identity_test

import (
	"testing"

	"tubesync/internal/identity"
)

func TestNewProducesUniqueIdentifiers(t *testing.T) {
	a := identity.New()
	b := identity.New()
	if a == "" || b == "" {
		t.Fatal("expected non-empty identifiers")
	}
	if a == b {
		t.Fatalf("expected unique identifiers, got %q twice", a)
	}
}

func TestMatches(t *testing.T) {
	id := identity.ClientID("client-1")
	if !id.Matches("client-1") {
		t.Fatal("expected identifier to match itself")
	}
	if id.Matches("client-2") {
		t.Fatal("did not expect identifier to match another client")
	}
	if id.Matches("") {
		t.Fatal("empty originator must never match")
	}
}
