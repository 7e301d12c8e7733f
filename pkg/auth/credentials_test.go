package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyPlaintextSecret(t *testing.T) {
	creds := NewCredentials(map[string]string{"matt": "kaas123"})

	if !creds.Verify("matt", "kaas123") {
		t.Error("correct password should verify")
	}
	if creds.Verify("matt", "kaas124") {
		t.Error("wrong password should fail")
	}
	if creds.Verify("matt", "") {
		t.Error("empty password should fail")
	}
	if creds.Verify("eve", "kaas123") {
		t.Error("unknown user should fail")
	}
}

func TestVerifyBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("fiets456"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	creds := NewCredentials(map[string]string{"tuz": string(hash)})

	if !creds.Verify("tuz", "fiets456") {
		t.Error("correct password should verify against the hash")
	}
	if creds.Verify("tuz", string(hash)) {
		t.Error("the stored hash itself must not work as a password")
	}
}

func TestKnownNormalizesConfiguredNames(t *testing.T) {
	creds := NewCredentials(map[string]string{"Matt": "x"})

	if !creds.Known("matt") {
		t.Error("configured usernames are stored lowercase")
	}
	if creds.Known("guest") {
		t.Error("guest must never be a credential-store key")
	}
}
