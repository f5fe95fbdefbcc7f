package auth

import (
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("HashPassword() returned the plaintext")
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("VerifyPassword() rejected the correct password")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("VerifyPassword() accepted a wrong password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken(42, "tester")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("userId = %d, want 42", claims.UserID)
	}
	if claims.Username != "tester" {
		t.Errorf("username = %q, want %q", claims.Username, "tester")
	}
	if claims.Issuer != "pinyinhub" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken(42, "tester")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseToken(token + "x"); err == nil {
		t.Error("ParseToken() accepted a tampered token")
	}
	if _, err := ParseToken("not.a.token"); err == nil {
		t.Error("ParseToken() accepted garbage")
	}
}
