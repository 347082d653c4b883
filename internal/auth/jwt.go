// Package auth issues and checks the optional bearer tokens that guard the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/runcoach-ai/runcoach/internal/config"
)

const (
	tokenIssuer = "runcoach"
	tokenTTL    = 24 * time.Hour
)

var ErrAuthDisabled = errors.New("token auth is disabled")

// Enabled reports whether the API requires bearer tokens.
func Enabled() bool {
	return config.AppConfig.JWTSecret != ""
}

// GenerateJWT signs a token whose subject is the calling client's ID.
func GenerateJWT(clientID string) (string, error) {
	if !Enabled() {
		return "", ErrAuthDisabled
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateJWT returns the client ID a valid token was issued to.
func ValidateJWT(tokenString string) (string, error) {
	if !Enabled() {
		return "", ErrAuthDisabled
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
