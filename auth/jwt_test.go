package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestJWTAuthenticator_SignAndAuthenticate(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret, Issuer: "counterhealth", Audience: "ops"})

	token, err := a.SignToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if !a.Supports(req) {
		t.Fatal("Supports() = false for bearer token")
	}
	id, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Principal != "alice" {
		t.Errorf("Principal = %q, want alice", id.Principal)
	}
	if id.Method != AuthMethodJWT {
		t.Errorf("Method = %q, want jwt", id.Method)
	}
	if id.ExpiresAt.IsZero() || id.IsExpired() {
		t.Errorf("ExpiresAt = %v, want a future time", id.ExpiresAt)
	}
	if id.Claims["iss"] != "counterhealth" {
		t.Errorf("Claims[iss] = %v", id.Claims["iss"])
	}
}

func TestJWTAuthenticator_Rejections(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret, Issuer: "counterhealth"})
	now := time.Now()

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:    "no header",
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "basic auth",
			header:  "Basic YWxpY2U6c2VjcmV0",
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "garbage token",
			header:  "Bearer not.a.token",
			wantErr: ErrTokenMalformed,
		},
		{
			name: "expired",
			header: "Bearer " + signClaims(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "counterhealth",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			}),
			wantErr: ErrTokenExpired,
		},
		{
			name: "wrong issuer",
			header: "Bearer " + signClaims(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
				Subject:   "alice",
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name: "wrong secret",
			header: "Bearer " + signClaims(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{
				Subject: "alice",
				Issuer:  "counterhealth",
			}),
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, err := a.Authenticate(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTAuthenticator_CustomPrincipalClaim(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: testSecret, PrincipalClaim: "email"})

	token := signClaims(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub":   "123",
		"email": "ops@example.com",
	})
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Authorization", "bearer "+token)

	id, err := a.Authenticate(req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Principal != "ops@example.com" {
		t.Errorf("Principal = %q, want ops@example.com", id.Principal)
	}
	if !id.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero without exp claim", id.ExpiresAt)
	}
}
