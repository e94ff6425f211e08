package services

import (
	"testing"

	"maize-resilience-api/config"
)

func newTestAuth() *AuthService {
	return NewAuthService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
}

func TestHashAndCheckPassword(t *testing.T) {
	s := newTestAuth()

	hash, err := s.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("hash should not equal the plaintext")
	}

	if !s.CheckPassword(hash, "correct-horse") {
		t.Error("correct password should verify")
	}
	if s.CheckPassword(hash, "battery-staple") {
		t.Error("wrong password should not verify")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	s := newTestAuth()

	token, err := s.GenerateToken(42, "ops@example.com", "operator")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("user id = %d, want 42", claims.UserID)
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != "operator" {
		t.Errorf("role = %q, want operator", claims.Role)
	}
}

func TestValidateTokenRejectsBadInput(t *testing.T) {
	s := newTestAuth()

	if _, err := s.ValidateToken("not-a-token"); err == nil {
		t.Error("malformed token should be rejected")
	}

	other := NewAuthService(config.JWTConfig{Secret: "different-secret", ExpiryHours: 1})
	token, err := other.GenerateToken(1, "ops@example.com", "operator")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := s.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}
