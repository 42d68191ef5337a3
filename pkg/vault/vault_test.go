package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func testVault(t *testing.T) *Vault {
	t.Helper()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	v, err := New(hex.EncodeToString(key))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	v := testVault(t)

	for _, plaintext := range []string{
		"EAAGm0PX4ZCpsBO7",
		"",
		"token with spaces and : colons",
		strings.Repeat("x", 4096),
	} {
		enc, err := v.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if got := strings.Count(enc, ":"); got < 2 {
			t.Fatalf("expected three segments, got %q", enc)
		}
		dec, err := v.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if dec != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", dec, plaintext)
		}
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	v := testVault(t)

	a, err := v.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical payloads")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	v := testVault(t)

	enc, err := v.Encrypt("secret token")
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(enc, ":")
	raw, _ := hex.DecodeString(parts[2])
	raw[0] ^= 0x01
	parts[2] = hex.EncodeToString(raw)

	if _, err := v.Decrypt(strings.Join(parts, ":")); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}

func TestDecryptBadSegments(t *testing.T) {
	v := testVault(t)

	enc, err := v.Encrypt("secret token")
	if err != nil {
		t.Fatal(err)
	}

	for _, payload := range []string{
		"",
		"onlyone",
		"two:segments",
		enc + ":extra",
		"zz:zz:zz", // not hex
	} {
		if _, err := v.Decrypt(payload); !errors.Is(err, ErrDecryption) {
			t.Fatalf("payload %q: expected ErrDecryption, got %v", payload, err)
		}
	}
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := testVault(t).Encrypt("secret token")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := testVault(t).Decrypt(enc); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption with mismatched key, got %v", err)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, key := range []string{
		"",
		"abcd",
		strings.Repeat("a", 63),
		strings.Repeat("a", 66),
		strings.Repeat("z", 64), // not hex
	} {
		if _, err := New(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
