package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "sherise-api"
	TokenAudience = "sherise-client"
	TokenTTL      = 7 * 24 * time.Hour
)

var (
	ErrTokenMissing = errors.New("authorization required")
	ErrTokenInvalid = errors.New("invalid or expired token")
)

// TokenClaims is the subset of JWT claims the API relies on.
type TokenClaims struct {
	UserID uint
	Name   string
	JTI    string
}

// IssueToken signs an HS256 token for the user.
func IssueToken(secret string, userID uint, name string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(userID), 10),
		"name": name,
		"iss":  TokenIssuer,
		"aud":  TokenAudience,
		"exp":  now.Add(TokenTTL).Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"jti":  fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// ParseToken validates signature, expiry, issuer and audience and returns the claims.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrTokenInvalid
	}
	userID, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || userID == 0 {
		return nil, ErrTokenInvalid
	}

	out := &TokenClaims{UserID: uint(userID)}
	out.Name, _ = claims["name"].(string)
	out.JTI, _ = claims["jti"].(string)
	return out, nil
}
