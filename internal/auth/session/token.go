package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/enjoysite/friendmap/internal/auth/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "friendmap"

// Claims is the session token payload.
type Claims struct {
	UID         string `json:"uid"`
	DisplayName string `json:"name"`
	jwtlib.RegisteredClaims
}

// Issuer signs and parses anonymous session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an HS256 issuer. An empty secret gets a random one, which
// invalidates every token on restart.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	key := []byte(secret)
	if len(key) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("session secret: %v", err))
		}
		key = []byte(hex.EncodeToString(buf))
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{secret: key, ttl: ttl, now: time.Now}
}

// Sign creates a signed token for the given principal.
func (i *Issuer) Sign(uid, displayName string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		UID:         uid,
		DisplayName: displayName,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uid,
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token string and returns the claims.
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithIssuer(issuer), jwtlib.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UID == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// Verify implements the session middleware's token verifier.
func (i *Issuer) Verify(_ context.Context, token string) (*domain.Principal, error) {
	claims, err := i.Parse(token)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{
		UID:         claims.UID,
		DisplayName: claims.DisplayName,
		Provider:    domain.ProviderSession,
	}, nil
}

// Resume returns the uid of a token this issuer signed, expired or not, so a
// returning client keeps its principal. Signature and issuer are still checked.
func (i *Issuer) Resume(tokenStr string) (string, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithoutClaimsValidation())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Issuer != issuer || claims.UID == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.UID, nil
}
