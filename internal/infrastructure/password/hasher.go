// Package password derives and checks room credentials with PBKDF2.
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/hilthontt/duet/internal/domain"
	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations = 9999
	KeyLength  = 64
	SaltLength = 64
)

var (
	// ErrEntropy means the random source could not produce a salt.
	ErrEntropy   = errors.New("entropy source failure")
	ErrEmptySalt = errors.New("salt must not be empty")
)

type Hasher struct {
	entropy io.Reader
}

func NewHasher() *Hasher {
	return &Hasher{entropy: rand.Reader}
}

func NewHasherWithEntropy(entropy io.Reader) *Hasher {
	return &Hasher{entropy: entropy}
}

func (h *Hasher) CreateSalt() (string, error) {
	buf := make([]byte, SaltLength)
	if _, err := io.ReadFull(h.entropy, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntropy, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Hash uses the bytes of the encoded salt string as the PBKDF2 salt, so a
// stored salt can be fed back in unchanged.
func (h *Hasher) Hash(plain, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}
	key := pbkdf2.Key([]byte(plain), []byte(salt), Iterations, KeyLength, sha512.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

func (h *Hasher) Compare(plain string, stored domain.Password) (bool, error) {
	derived, err := h.Hash(plain, stored.Salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(stored.Value)) == 1, nil
}
