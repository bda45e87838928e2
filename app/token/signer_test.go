package token

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	signer, err := NewSigner("test-secret")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	tok, err := signer.Issue("student@example.edu", PurposeVerify, 15*time.Minute)
	if err != nil {
		t.Fatalf("Expected no error issuing token, got: %v", err)
	}

	email, err := signer.Verify(tok, PurposeVerify)
	if err != nil {
		t.Fatalf("Expected valid token to verify, got: %v", err)
	}
	if email != "student@example.edu" {
		t.Errorf("Expected embedded email 'student@example.edu', got: %s", email)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	signer, _ := NewSigner("test-secret")

	tok, err := signer.Issue("student@example.edu", PurposeVerify, -time.Minute)
	if err != nil {
		t.Fatalf("Expected no error issuing token, got: %v", err)
	}

	_, err = signer.Verify(tok, PurposeVerify)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got: %v", err)
	}
}

func TestVerifyWrongPurpose(t *testing.T) {
	signer, _ := NewSigner("test-secret")

	tok, err := signer.Issue("student@example.edu", PurposeUnsubscribe, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error issuing token, got: %v", err)
	}

	_, err = signer.Verify(tok, PurposeVerify)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong purpose, got: %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	signer, _ := NewSigner("test-secret")
	other, _ := NewSigner("other-secret")

	tok, err := other.Issue("student@example.edu", PurposeVerify, time.Hour)
	if err != nil {
		t.Fatalf("Expected no error issuing token, got: %v", err)
	}

	_, err = signer.Verify(tok, PurposeVerify)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for foreign signature, got: %v", err)
	}

	if _, err := signer.Verify("not-a-token", PurposeVerify); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage input, got: %v", err)
	}
}

func TestVerifyRepeatedPresentation(t *testing.T) {
	signer, _ := NewSigner("test-secret")

	tok, _ := signer.Issue("student@example.edu", PurposeUnsubscribe, time.Hour)

	// Tokens are stateless: repeated presentation before expiry verifies
	// every time, idempotence is the store's concern
	for i := 0; i < 2; i++ {
		if _, err := signer.Verify(tok, PurposeUnsubscribe); err != nil {
			t.Errorf("Expected repeat verification %d to succeed, got: %v", i, err)
		}
	}
}

func TestNewSignerEmptySecret(t *testing.T) {
	if _, err := NewSigner(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}
