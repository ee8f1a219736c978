// Package entry issues and checks the short-lived admission tokens a client
// presents after proving it knows a room's password.
package entry

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTokenTTL = 30 * time.Second

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token malformed")
	ErrTokenRoomMismatch = errors.New("token issued for another room")
	ErrMissingSecret     = errors.New("token signing secret is required")
)

type Claims struct {
	Okay   bool   `json:"okay"`
	RoomID string `json:"room,omitempty"`
	jwt.RegisteredClaims
}

type Options struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

type Gate struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGate(opts Options) (*Gate, error) {
	if opts.Secret == "" {
		return nil, ErrMissingSecret
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Gate{
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		now:    opts.Now,
	}, nil
}

// Issue signs a token valid for the gate's TTL. A non-empty roomID binds the
// token to that room.
func (g *Gate) Issue(roomID string) (string, time.Time, error) {
	now := g.now()
	expiresAt := now.Add(g.ttl)

	claims := Claims{
		Okay:   true,
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature and expiry. When both roomID and the token's room
// claim are set they must match; an unbound token passes for any room.
func (g *Gate) Verify(token, roomID string) error {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid || !claims.Okay {
		return ErrTokenInvalid
	}

	if roomID != "" && claims.RoomID != "" && claims.RoomID != roomID {
		return ErrTokenRoomMismatch
	}
	return nil
}
