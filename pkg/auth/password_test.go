package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Tests use bcrypt.MinCost; the default cost is too slow for a test suite.

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !hasher.Verify("correct horse battery staple", hash) {
		t.Error("Verify rejected the original password")
	}
	if hasher.Verify("wrong password", hash) {
		t.Error("Verify accepted a wrong password")
	}
}

func TestPasswordHasher_HashNeverStoresPlaintext(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter2hunter2")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if strings.Contains(hash, "hunter2") {
		t.Error("Digest contains the plaintext password")
	}
}

func TestPasswordHasher_SaltedDigests(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// Per-password random salt: equal inputs, distinct digests
	if h1 == h2 {
		t.Error("Two hashes of the same password are identical")
	}
	if !hasher.Verify("same password", h1) || !hasher.Verify("same password", h2) {
		t.Error("Verify rejected one of the salted digests")
	}
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	if hasher.Verify("anything", "not-a-bcrypt-digest") {
		t.Error("Verify accepted a malformed digest")
	}
	if hasher.Verify("anything", "") {
		t.Error("Verify accepted an empty digest")
	}
}

func TestNewPasswordHasher_ZeroCostDefaults(t *testing.T) {
	hasher := NewPasswordHasher(0)
	if hasher.cost != bcrypt.DefaultCost {
		t.Errorf("Got cost %d, want bcrypt.DefaultCost (%d)", hasher.cost, bcrypt.DefaultCost)
	}
}
