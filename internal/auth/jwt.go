package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenTTL is the lifetime of tokens issued by GenerateJWT.
const TokenTTL = 15 * time.Minute

// Claims identify the API key a token was exchanged for.
type Claims struct {
	KeyID     string `json:"key_id"`
	HashedKey string `json:"hashed_key"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a short-lived HS256 token for an API key. It returns
// the signed token and its expiry as a Unix timestamp.
func GenerateJWT(keyID, hashedKey string, secret []byte, now time.Time) (string, int64, error) {
	if len(secret) == 0 {
		return "", 0, fmt.Errorf("jwt secret is not configured")
	}
	exp := now.Add(TokenTTL)
	claims := Claims{
		KeyID:     keyID,
		HashedKey: hashedKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   keyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", 0, err
	}
	return signed, exp.Unix(), nil
}

// ValidateJWT verifies signature, algorithm and expiry and returns the claims.
func ValidateJWT(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
