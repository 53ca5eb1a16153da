// Package auth validates reviewer tokens for the approval endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/procurement-agent/middleware"
)

var (
	// ErrInvalidToken is returned when a token cannot be verified
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token's exp is in the past
	ErrTokenExpired = errors.New("token expired")

	// ErrAuthDisabled is returned by the validator used when no secret is configured
	ErrAuthDisabled = errors.New("authentication is not configured")
)

// Claims is the JWT payload accepted for reviewers
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HMACValidator verifies HS256/384/512 tokens signed with a shared secret
type HMACValidator struct {
	secret []byte
	issuer string
}

// NewHMACValidator creates a validator. When issuer is set, tokens must carry it.
func NewHMACValidator(secret, issuer string) *HMACValidator {
	return &HMACValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// ValidateToken implements middleware.TokenValidator
func (v *HMACValidator) ValidateToken(_ context.Context, tokenString string) (*middleware.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	out := &middleware.Claims{
		Sub:   claims.Subject,
		Email: claims.Email,
		Roles: claims.Roles,
		Iss:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out.Iat = claims.IssuedAt.Unix()
	}
	return out, nil
}

// DisabledValidator rejects every token
type DisabledValidator struct{}

// ValidateToken implements middleware.TokenValidator
func (DisabledValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, ErrAuthDisabled
}

// NewValidator returns an HMACValidator, or a DisabledValidator when secret is empty
func NewValidator(secret, issuer string) middleware.TokenValidator {
	if secret == "" {
		return DisabledValidator{}
	}
	return NewHMACValidator(secret, issuer)
}
