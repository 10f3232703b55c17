package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestGenerator() *TokenGenerator {
	return NewTokenGenerator(
		"test-secret-key-that-is-long-enough",
		"classpulse",
		"classpulse-api",
		15*time.Minute,
		64,
	)
}

func TestGenerateAccessToken(t *testing.T) {
	tg := newTestGenerator()

	tests := []struct {
		name     string
		userID   string
		username string
		email    string
		roles    []string
	}{
		{
			name:     "single role",
			userID:   "user-123",
			username: "jdoe",
			email:    "jdoe@example.com",
			roles:    []string{"teacher"},
		},
		{
			name:     "multiple roles",
			userID:   "user-456",
			username: "asmith",
			email:    "asmith@example.com",
			roles:    []string{"teacher", "admin"},
		},
		{
			name:     "nil roles",
			userID:   "user-789",
			username: "nobody",
			email:    "nobody@example.com",
			roles:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tg.GenerateAccessToken(tt.userID, tt.username, tt.email, tt.roles)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			parts := strings.Split(token, ".")
			if len(parts) != 3 {
				t.Errorf("Expected 3 JWT parts, got %d", len(parts))
			}
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tg := newTestGenerator()

	token, err := tg.GenerateAccessToken("user-123", "jdoe", "jdoe@example.com", []string{"teacher", "parent"})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := tg.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Errorf("Expected UserID user-123, got %s", claims.UserID)
	}
	if claims.Username != "jdoe" {
		t.Errorf("Expected Username jdoe, got %s", claims.Username)
	}
	if claims.Email != "jdoe@example.com" {
		t.Errorf("Expected Email jdoe@example.com, got %s", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "teacher" || claims.Roles[1] != "parent" {
		t.Errorf("Roles not preserved, got %v", claims.Roles)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Expected Subject user-123, got %s", claims.Subject)
	}
	if claims.Issuer != "classpulse" {
		t.Errorf("Expected issuer classpulse, got %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("Expected a token id claim")
	}

	if claims.ExpiresAt == nil {
		t.Fatal("Expected ExpiresAt to be set")
	}
	expectedExpiry := time.Now().Add(15 * time.Minute)
	if claims.ExpiresAt.Time.Before(expectedExpiry.Add(-5*time.Second)) ||
		claims.ExpiresAt.Time.After(expectedExpiry.Add(5*time.Second)) {
		t.Errorf("Expected expiry around %v, got %v", expectedExpiry, claims.ExpiresAt.Time)
	}
}

func TestUniqueTokenIDs(t *testing.T) {
	tg := newTestGenerator()

	t1, err := tg.GenerateAccessToken("user-123", "jdoe", "jdoe@example.com", []string{"student"})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	t2, err := tg.GenerateAccessToken("user-123", "jdoe", "jdoe@example.com", []string{"student"})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	c1, _ := tg.ValidateAccessToken(t1)
	c2, _ := tg.ValidateAccessToken(t2)
	if c1.ID == c2.ID {
		t.Error("Expected distinct token ids for consecutive tokens")
	}
}

func TestValidateAccessToken(t *testing.T) {
	tg := newTestGenerator()

	validToken, _ := tg.GenerateAccessToken("user-123", "jdoe", "jdoe@example.com", []string{"student"})

	other := NewTokenGenerator("completely-different-secret-key", "classpulse", "classpulse-api", 15*time.Minute, 64)
	wrongSecretToken, _ := other.GenerateAccessToken("user-456", "eve", "eve@example.com", []string{"admin"})

	tests := []struct {
		name        string
		tokenString string
		expectError bool
	}{
		{name: "valid token", tokenString: validToken, expectError: false},
		{name: "wrong secret", tokenString: wrongSecretToken, expectError: true},
		{name: "empty token", tokenString: "", expectError: true},
		{name: "garbage", tokenString: "not-a-jwt-at-all", expectError: true},
		{name: "missing parts", tokenString: "header.payload", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tg.ValidateAccessToken(tt.tokenString)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if claims == nil {
				t.Fatal("Expected claims, got nil")
			}
		})
	}
}

func TestValidateTamperedToken(t *testing.T) {
	tg := newTestGenerator()

	token, _ := tg.GenerateAccessToken("user-123", "jdoe", "jdoe@example.com", []string{"student"})

	// Flip a character in the payload segment.
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := tg.ValidateAccessToken(tampered); err == nil {
		t.Fatal("Expected error for tampered token, got none")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	tg := newTestGenerator()

	claims := Claims{
		UserID: "user-expired",
		Roles:  []string{"student"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "classpulse",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, err := token.SignedString(tg.secret)
	if err != nil {
		t.Fatalf("Failed to create expired token: %v", err)
	}

	if _, err := tg.ValidateAccessToken(expiredToken); err == nil {
		t.Fatal("Expected error for expired token, got none")
	}
}

func TestValidateWrongSigningMethod(t *testing.T) {
	tg := newTestGenerator()

	// alg=none tokens must never validate.
	claims := Claims{
		UserID: "user-none",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to create unsigned token: %v", err)
	}

	if _, err := tg.ValidateAccessToken(unsigned); err == nil {
		t.Fatal("Expected error for unsigned token, got none")
	}
}

func TestNewRefreshToken(t *testing.T) {
	tg := newTestGenerator()

	token, err := tg.NewRefreshToken()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty refresh token")
	}

	// 64 bytes of entropy base64url-encodes to 88 characters.
	if len(token) != 88 {
		t.Errorf("Expected token length 88, got %d", len(token))
	}

	for _, c := range token {
		if !((c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '=') {
			t.Errorf("Invalid base64 URL character: %c", c)
		}
	}
}

func TestNewRefreshTokenUniqueness(t *testing.T) {
	tg := newTestGenerator()

	seen := make(map[string]bool)
	iterations := 100

	for i := 0; i < iterations; i++ {
		token, err := tg.NewRefreshToken()
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}
		if seen[token] {
			t.Fatalf("Generated duplicate refresh token: %s", token)
		}
		seen[token] = true
	}
}

func TestExpiresIn(t *testing.T) {
	tg := newTestGenerator()
	if got := tg.ExpiresIn(); got != 900 {
		t.Errorf("Expected 900 seconds, got %d", got)
	}
	if got := tg.AccessTTL(); got != 15*time.Minute {
		t.Errorf("Expected 15m, got %v", got)
	}
}
