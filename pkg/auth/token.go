package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token. The account is re-fetched on
// every verification, so these fields are a hint for logging and routing,
// never an authorization source.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"uid"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// TokenCodec issues and verifies HS256-signed session tokens with a fixed
// lifetime. The clock is injectable for tests.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec signing with the given secret. The secret
// must be non-empty; there is no unsigned fallback.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime, used to align the session
// cookie's Max-Age with the token expiry.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the account with iat=now and exp=now+ttl.
func (c *TokenCodec) Issue(account *Account) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. Expired tokens return
// ErrTokenExpired; every other failure returns ErrTokenInvalid.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.AccountID == 0 || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
