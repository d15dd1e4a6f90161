package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "sharebox"

// Claims identifies the owner behind an authenticated request.
type Claims struct {
	OwnerID string `json:"owner_id"`
	jwtlib.RegisteredClaims
}

func GenerateToken(ownerID string, secret []byte, ttl time.Duration) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	now := time.Now()
	claims := Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   ownerID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwtlib.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OwnerID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
