package auth

import (
	"context"
	"testing"
	"time"
)

func TestCSRFGuard_SingleUse(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	guard := NewCSRFGuard(store, time.Hour)

	token, err := guard.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if !guard.Validate(ctx, token, "") {
		t.Fatal("First validation failed")
	}
	// Consumed on first use
	if guard.Validate(ctx, token, "") {
		t.Error("Second validation of the same token succeeded")
	}
}

func TestCSRFGuard_RejectsUnknownAndEmpty(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	guard := NewCSRFGuard(store, time.Hour)

	if guard.Validate(ctx, "never-issued", "") {
		t.Error("Validation of an unissued token succeeded")
	}
	if guard.Validate(ctx, "", "") {
		t.Error("Validation of an empty token succeeded")
	}
}

func TestCSRFGuard_ScopedTokenReplacesPrior(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	guard := NewCSRFGuard(store, time.Hour)

	first, err := guard.Issue(ctx, "session-token")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	second, err := guard.Issue(ctx, "session-token")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// One active token per scope: the first issuance is dead
	if guard.Validate(ctx, first, "session-token") {
		t.Error("Replaced token still validates")
	}
	if !guard.Validate(ctx, second, "session-token") {
		t.Error("Current token does not validate")
	}
}

func TestCSRFGuard_ScopeMismatch(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	guard := NewCSRFGuard(store, time.Hour)

	token, err := guard.Issue(ctx, "session-a")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// A token issued for one session must not validate under another
	if guard.Validate(ctx, token, "session-b") {
		t.Error("Token validated under the wrong scope")
	}
	// The failed attempt must not have consumed it
	if !guard.Validate(ctx, token, "session-a") {
		t.Error("Token no longer validates under its own scope")
	}
}

func TestCSRFGuard_TokenExpiry(t *testing.T) {
	store, mr, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	guard := NewCSRFGuard(store, time.Minute)

	token, err := guard.Issue(ctx, "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if guard.Validate(ctx, token, "") {
		t.Error("Expired token validated")
	}
}

func TestNewCSRFGuard_ClampsTTL(t *testing.T) {
	store, _, cleanup := setupStoreTest(t)
	defer cleanup()

	for _, ttl := range []time.Duration{0, -time.Minute, 48 * time.Hour} {
		guard := NewCSRFGuard(store, ttl)
		if guard.ttl != time.Hour {
			t.Errorf("TTL %v: got %v, want clamp to 1h", ttl, guard.ttl)
		}
	}
}
