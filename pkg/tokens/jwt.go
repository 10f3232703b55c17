package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by an access token. Validity is determined purely by
// signature and expiry; there is no server-side lookup on the access path.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenGenerator mints signed access tokens and opaque refresh tokens.
type TokenGenerator struct {
	secret       []byte
	issuer       string
	audience     string
	accessTTL    time.Duration
	refreshBytes int
}

func NewTokenGenerator(secret, issuer, audience string, accessTTL time.Duration, refreshBytes int) *TokenGenerator {
	return &TokenGenerator{
		secret:       []byte(secret),
		issuer:       issuer,
		audience:     audience,
		accessTTL:    accessTTL,
		refreshBytes: refreshBytes,
	}
}

// GenerateAccessToken returns a signed HS256 token carrying the user's
// identity and full role set, with a unique token id.
func (tg *TokenGenerator) GenerateAccessToken(userID, username, email string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    tg.issuer,
			Audience:  jwt.ClaimStrings{tg.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(tg.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tg.secret)
}

// ValidateAccessToken checks signature and expiry and returns the claims.
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tg.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NewRefreshToken returns a fresh opaque refresh token string. Uniqueness
// comes from randomness; the storage layer still enforces a unique
// constraint on the column.
func (tg *TokenGenerator) NewRefreshToken() (string, error) {
	b := make([]byte, tg.refreshBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// AccessTTL returns the configured access token lifetime.
func (tg *TokenGenerator) AccessTTL() time.Duration {
	return tg.accessTTL
}

// ExpiresIn returns the access token lifetime in whole seconds, as
// reported in login responses.
func (tg *TokenGenerator) ExpiresIn() int {
	return int(tg.accessTTL.Seconds())
}
