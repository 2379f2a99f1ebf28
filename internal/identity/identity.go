// Package identity resolves bearer credentials into an auth.Principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nazm-contest-api/internal/auth"
)

// ErrInvalidToken is returned for missing, malformed, expired or forged tokens
var ErrInvalidToken = errors.New("invalid token")

// Resolver turns a bearer token into the caller's principal
type Resolver interface {
	Resolve(ctx context.Context, token string) (auth.Principal, error)
}

// Claims are the token claims understood by JWTResolver
type Claims struct {
	Name string    `json:"name"`
	Role auth.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens signed with a shared secret
type JWTResolver struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTResolver creates a resolver; ttl is used by Issue
func NewJWTResolver(secret, issuer string, ttl time.Duration) *JWTResolver {
	return &JWTResolver{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Resolve validates token and returns the principal it names
func (r *JWTResolver) Resolve(ctx context.Context, token string) (auth.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Principal{}, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := auth.Principal{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	if !p.Authenticated() {
		return auth.Principal{}, fmt.Errorf("%w: missing subject or unknown role", ErrInvalidToken)
	}
	return p, nil
}

// Issue signs a token for p, valid for the resolver's TTL
func (r *JWTResolver) Issue(p auth.Principal) (string, error) {
	if !p.Authenticated() {
		return "", fmt.Errorf("cannot issue token: principal needs an id and a known role")
	}

	now := r.now()
	claims := Claims{
		Name: p.Name,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
