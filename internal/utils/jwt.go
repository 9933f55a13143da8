package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Session IDs
	"github.com/pkg/errors"        // Error helpers
)

// Claims carried by a session token
type Claims struct {
	AccountID            uint `json:"account_id"` // Custom claim for account ID
	jwt.RegisteredClaims      // Standard JWT claims, ID holds the session ID
}

// GenerateJWT creates a session token for an account and returns it with its session ID
func GenerateJWT(accountID uint, secret string, ttl time.Duration) (string, string, error) {
	sessionID := uuid.NewString() // Random session ID, also the redis key
	now := time.Now()
	// Set token claims
	claims := Claims{
		AccountID: accountID, // Custom claim for account ID
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,                        // Session ID
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	signed, err := token.SignedString([]byte(secret))          // Sign the token with the secret
	if err != nil {
		return "", "", errors.Wrap(err, "sign session token")
	}
	return signed, sessionID, nil
}

// ParseJWT parses and validates a session token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})) // Only accept HS256
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.ID != "" {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrTokenInvalidClaims
}
