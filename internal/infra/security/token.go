package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/juanjice29/PortalCapacitaciones/internal/core/domain"
)

// MinSigningSecretBytes is the minimum amount of secret material accepted
// for HMAC signing. Enforced once at construction, not per call.
const MinSigningSecretBytes = 32

var (
	// ErrWeakSigningSecret indicates the configured signing secret is absent
	// or shorter than the minimum security length. Fatal at startup.
	ErrWeakSigningSecret = fmt.Errorf("token: signing secret must be at least %d bytes", MinSigningSecretBytes)
	// ErrInvalidCredential indicates the token signature does not match or a
	// required claim is missing or malformed.
	ErrInvalidCredential = errors.New("token: invalid credential")
	// ErrExpiredCredential indicates the token's validity window has passed.
	ErrExpiredCredential = errors.New("token: credential expired")
)

// Claims are the facts embedded in a signed credential.
type Claims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the identity consumed by the
// authorization gate.
func (c *Claims) Identity() domain.Identity {
	role, ok := domain.ParseRole(c.Role)
	if !ok {
		role = domain.RoleUser
	}
	return domain.Identity{
		AccountID: c.Subject,
		Email:     c.Email,
		Role:      role,
	}
}

// TokenCodec signs and verifies the platform's bearer credential using
// symmetric HMAC-SHA256. It performs no I/O; the signing key and validity
// window are fixed at construction.
type TokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec validates the secret and builds a codec. A secret shorter
// than MinSigningSecretBytes is a configuration error and must abort
// startup.
func NewTokenCodec(secret, issuer string, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < MinSigningSecretBytes {
		return nil, ErrWeakSigningSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// Validity returns the configured token lifetime.
func (c *TokenCodec) Validity() time.Duration {
	return c.ttl
}

// Sign mints a credential for the account. Expiry is exactly issued-at plus
// the configured validity window.
func (c *TokenCodec) Sign(account domain.Account) (string, error) {
	if account.ID == "" {
		return "", fmt.Errorf("token: account id is required")
	}

	now := c.now().UTC()
	claims := Claims{
		Email:    account.Email,
		Role:     string(account.Role),
		FullName: account.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity window and returns the embedded
// claims. Pure computation over the token and the configured key.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidCredential
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, ErrInvalidCredential
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidCredential
	}
	if claims.Subject == "" {
		return nil, ErrInvalidCredential
	}
	if _, ok := domain.ParseRole(claims.Role); !ok {
		return nil, ErrInvalidCredential
	}

	return claims, nil
}
