// SPDX-License-Identifier: MIT

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the authenticated principal carried by every bearer token.
type Claims struct {
	Sub  string `json:"sub"` // user id (UUID string)
	Name string `json:"name"`
	Role Role   `json:"role"`
	Exp  int64  `json:"exp"` // unix seconds
}

// jwtClaims adapts Claims to the jwt library's claims interface.
type jwtClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CreateToken mints a signed token for the given user.
func CreateToken(userID, name string, role Role, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Name: name,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// DecodeToken validates the signature and expiry of a token and returns
// its claims.
func DecodeToken(tokenString, secret string) (Claims, error) {
	var parsed jwtClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	claims := Claims{
		Sub:  parsed.Subject,
		Name: parsed.Name,
		Role: Role(parsed.Role),
	}
	if parsed.ExpiresAt != nil {
		claims.Exp = parsed.ExpiresAt.Unix()
	}
	if !claims.Role.Valid() {
		return Claims{}, fmt.Errorf("unknown role %q in token", parsed.Role)
	}
	return claims, nil
}
