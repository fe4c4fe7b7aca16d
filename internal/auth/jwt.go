// Package auth provides JWT token generation and validation.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: what is a JWT?
// ────────────────────────────────────────────────────────────────────
// A JSON Web Token (JWT) is a compact, self-contained way to represent
// claims (assertions) between two parties. It has three Base64-encoded
// sections separated by dots:
//
//	HEADER.PAYLOAD.SIGNATURE
//
// The HEADER says which algorithm was used (HS256 here).
// The PAYLOAD carries our custom claims (user_id, role) plus standard
// ones (expiry, issued-at).
// The SIGNATURE is an HMAC-SHA256 hash of HEADER+PAYLOAD using a secret
// key only the server knows. Tampering with the payload invalidates the
// signature, so the server can trust the claims without a database lookup
// on every request.
//
// Useful resource: https://jwt.io/introduction
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every token and required when parsing.
const Issuer = "nearby"

// TokenDuration is how long a session token stays valid after being issued.
const TokenDuration = 72 * time.Hour

// leeway absorbs clock skew between API replicas.
const leeway = 30 * time.Second

// ErrInvalidToken wraps every ParseToken failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims embedded in each token. Subject repeats UserID
// so generic JWT tooling can read it.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 session token for the user.
func GenerateToken(userID, role, secret string) (string, error) {
	now := time.Now()
	return GenerateTokenWithExpiry(userID, role, secret, now, now.Add(TokenDuration))
}

// GenerateTokenWithExpiry is GenerateToken with explicit iat/exp. Tests use
// it to build already-expired tokens.
func GenerateTokenWithExpiry(userID, role, secret string, iat, exp time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("sign token: empty secret")
	}
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(iat),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates tokenStr and returns its claims. Only HS256 tokens
// issued by this server with a user id and an unexpired exp are accepted.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return claims, nil
}
