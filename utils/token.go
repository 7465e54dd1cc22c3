package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const secretKey = "supersecret"

// GenerateToken mints a session token. The token is a signed JWT so callers
// outside this service can inspect who it was issued to, but the service
// itself treats it as an opaque string: authorization is decided solely by
// looking the token up in the credential store, and validity ends when the
// daily sweep removes the stored record. Nothing reads the claims back.
func GenerateToken(username, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"email":    email,
		"jti":      uuid.NewString(),
		"iat":      time.Now().Unix(),
	})
	return token.SignedString([]byte(secretKey))
}
