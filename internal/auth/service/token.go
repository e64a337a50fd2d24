// Package service issues and validates the JWT pair used by the API
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// tokenClaims is the payload of both token types. Refresh tokens only carry the
// registered claims with a random ID; their owner is looked up in user_tokens.
type tokenClaims struct {
	UserID int    `json:"user_id,omitempty"`
	Role   int    `json:"role,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and validates HS256 access and refresh tokens
type TokenGenerator struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	parser             *jwt.Parser
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, accessExpiry, refreshExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// RefreshTokenExpiry returns the lifetime of refresh tokens
func (tg *TokenGenerator) RefreshTokenExpiry() time.Duration {
	return tg.refreshTokenExpiry
}

// GenerateTokens returns a signed access token for the user and a fresh refresh token
func (tg *TokenGenerator) GenerateTokens(userID int, role int) (string, string, error) {
	now := time.Now()

	accessToken, err := tg.sign(tokenClaims{
		UserID:           userID,
		Role:             role,
		Type:             tokenTypeAccess,
		RegisteredClaims: registered(now, tg.accessTokenExpiry, ""),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := tg.sign(tokenClaims{
		Type:             tokenTypeRefresh,
		RegisteredClaims: registered(now, tg.refreshTokenExpiry, uuid.NewString()),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// ValidateAccessToken validates an access token and returns the userID and role
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (int, int, error) {
	claims, err := tg.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return 0, 0, err
	}
	if claims.Role <= 0 {
		return 0, 0, errors.New("role not found in token")
	}

	return claims.UserID, claims.Role, nil
}

// ValidateRefreshToken validates a refresh token
func (tg *TokenGenerator) ValidateRefreshToken(tokenString string) error {
	claims, err := tg.parse(tokenString, tokenTypeRefresh)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return errors.New("refresh token has no id")
	}
	return nil
}

func (tg *TokenGenerator) sign(claims tokenClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tg.secret))
}

func (tg *TokenGenerator) parse(tokenString, tokenType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := tg.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(tg.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Type != tokenType {
		return nil, fmt.Errorf("token is not a %s token", tokenType)
	}

	return claims, nil
}

func registered(now time.Time, ttl time.Duration, id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
