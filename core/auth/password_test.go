package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash format: %q", hash)
	}
	if !VerifyPassword("123", hash) {
		t.Fatal("correct password did not verify")
	}
	if VerifyPassword("1234", hash) {
		t.Fatal("wrong password verified")
	}
}

func TestHashesDiffer(t *testing.T) {
	h1, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password are identical, salt missing")
	}
}

func TestVerifyCorruptHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$10$tooshort"} {
		if VerifyPassword("123", hash) {
			t.Fatalf("corrupt hash %q verified", hash)
		}
	}
}
