package password

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/hilthontt/duet/internal/domain"
)

func TestHashRoundTrip(t *testing.T) {
	h := NewHasher()

	salt, err := h.CreateSalt()
	if err != nil {
		t.Fatalf("CreateSalt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil || len(raw) != SaltLength {
		t.Fatalf("salt decodes to %d bytes, err %v", len(raw), err)
	}

	hashed, err := h.Hash("p1", salt)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	key, _ := base64.StdEncoding.DecodeString(hashed)
	if len(key) != KeyLength {
		t.Fatalf("key length = %d", len(key))
	}

	stored := domain.Password{Value: hashed, Salt: salt}

	ok, err := h.Compare("p1", stored)
	if err != nil || !ok {
		t.Fatalf("Compare(p1) = %v, %v", ok, err)
	}
	ok, err = h.Compare("p2", stored)
	if err != nil || ok {
		t.Fatalf("Compare(p2) = %v, %v", ok, err)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	h := NewHasher()

	a, _ := h.Hash("secret", "c2FsdA==")
	b, _ := h.Hash("secret", "c2FsdA==")
	if a != b {
		t.Fatal("same password and salt produced different hashes")
	}
}

func TestHashSaltSensitivity(t *testing.T) {
	h := NewHasher()

	s1, err := h.CreateSalt()
	if err != nil {
		t.Fatalf("CreateSalt: %v", err)
	}
	s2, err := h.CreateSalt()
	if err != nil {
		t.Fatalf("CreateSalt: %v", err)
	}
	if s1 == s2 {
		t.Fatal("two salts are identical")
	}

	a, _ := h.Hash("secret", s1)
	b, _ := h.Hash("secret", s2)
	if a == b {
		t.Fatal("different salts produced the same hash")
	}
}

func TestCreateSaltUsesEntropySource(t *testing.T) {
	h := NewHasherWithEntropy(bytes.NewReader(bytes.Repeat([]byte{7}, SaltLength)))

	salt, err := h.CreateSalt()
	if err != nil {
		t.Fatalf("CreateSalt: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, SaltLength)); salt != want {
		t.Fatalf("salt = %q, want %q", salt, want)
	}
	if _, err := h.CreateSalt(); !errors.Is(err, ErrEntropy) {
		t.Fatalf("exhausted source: err = %v", err)
	}
}

func TestCreateSaltEntropyFailure(t *testing.T) {
	h := NewHasherWithEntropy(iotest.ErrReader(errors.New("no entropy")))

	if _, err := h.CreateSalt(); !errors.Is(err, ErrEntropy) {
		t.Fatalf("err = %v", err)
	}
}

func TestHashRejectsEmptySalt(t *testing.T) {
	if _, err := NewHasher().Hash("secret", ""); !errors.Is(err, ErrEmptySalt) {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewHasher().Compare("secret", domain.Password{Value: "x"}); !errors.Is(err, ErrEmptySalt) {
		t.Fatalf("err = %v", err)
	}
}
