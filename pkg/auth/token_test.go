package auth

import (
	"strings"
	"testing"
)

func TestGenerateToken_Length(t *testing.T) {
	token, err := GenerateToken(TokenLength)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	// 32 bytes base64url without padding is always 43 characters
	if len(token) != 43 {
		t.Errorf("Got token length %d, want 43", len(token))
	}
}

func TestGenerateToken_URLSafe(t *testing.T) {
	for i := 0; i < 50; i++ {
		token, err := GenerateToken(TokenLength)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("Token %q contains non-URL-safe characters", token)
		}
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken(TokenLength)
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("Duplicate token after %d generations", i)
		}
		seen[token] = true
	}
}

func TestGenerateToken_ZeroLengthUsesDefault(t *testing.T) {
	token, err := GenerateToken(0)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(token) != 43 {
		t.Errorf("Got token length %d, want 43", len(token))
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || a == b {
		t.Errorf("NewID produced %q and %q, want distinct non-empty ids", a, b)
	}
}
