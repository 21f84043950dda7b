package security

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 bytes of entropy, got %d", len(raw))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token contains characters unsafe for URLs: %q", token)
	}

	other, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if token == other {
		t.Fatalf("expected distinct tokens on consecutive calls")
	}
}

func TestGenerateSecureTokenEnforcesFloor(t *testing.T) {
	token, err := GenerateSecureToken(4)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) < minTokenBytes {
		t.Fatalf("expected at least %d bytes, got %d", minTokenBytes, len(raw))
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for _, width := range []int{4, 6, 8} {
		code, err := GenerateNumericCode(width)
		if err != nil {
			t.Fatalf("GenerateNumericCode(%d) returned error: %v", width, err)
		}
		if len(code) != width {
			t.Fatalf("expected width %d, got %q", width, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected digits only, got %q", code)
			}
		}
	}
}

func TestGenerateNumericCodeRejectsInvalidWidth(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected an error for zero width")
	}
	if _, err := GenerateNumericCode(-3); err == nil {
		t.Fatalf("expected an error for negative width")
	}
}

func TestHashToken(t *testing.T) {
	first := HashToken("abc123")
	second := HashToken("abc123")
	if first != second {
		t.Fatalf("expected a deterministic digest")
	}
	if len(first) != 64 {
		t.Fatalf("expected a 64 character hex digest, got %d", len(first))
	}
	if first == HashToken("abc124") {
		t.Fatalf("expected distinct digests for distinct inputs")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatalf("hash must not equal the password")
	}

	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the password to verify against its own hash")
	}

	ok, err = VerifyPassword("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected a wrong password to fail verification")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("whatever password", "not-a-hash"); err == nil {
		t.Fatalf("expected an error for a malformed hash")
	}
	if ok, err := VerifyPassword("", ""); err != nil || ok {
		t.Fatalf("expected empty inputs to fail closed, ok=%v err=%v", ok, err)
	}
}
