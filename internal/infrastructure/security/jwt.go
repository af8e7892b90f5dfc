// Package security provides JWT, encryption, and secure generation utilities
package security

import (
	"errors"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateSessionToken creates a JWT for an authenticated user.
func GenerateSessionToken(u *user.AuthenticatedUser, jwtSecret string, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"name":  u.Name,
		"email": u.Email,
		"type":  "user_auth",
		"iat":   time.Now().UTC().Unix(),
		"exp":   time.Now().UTC().Add(lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// GetUserFromClaims extracts the authenticated user from session token claims.
// Returns nil when the claims are not a user session.
func GetUserFromClaims(claims jwt.MapClaims) *user.AuthenticatedUser {
	if tokenType, ok := claims["type"].(string); !ok || tokenType != "user_auth" {
		return nil
	}

	id, ok := claims["sub"].(string)
	if !ok || id == "" {
		return nil
	}

	u := &user.AuthenticatedUser{ID: id}
	if name, ok := claims["name"].(string); ok {
		u.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		u.Email = email
	}
	return u
}
