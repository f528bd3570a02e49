// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("person-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	sub, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if sub != "person-1" {
		t.Errorf("ParseToken() subject = %q, want person-1", sub)
	}
}

func TestIssueToken_EmptySubject(t *testing.T) {
	if _, err := IssueToken("", "secret", 0); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("IssueToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	expiredClaims := jwt.RegisteredClaims{
		Subject:   "person-1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("secret"))

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "person-1",
		Issuer:  "someone-else",
	}).SignedString([]byte("secret"))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "person-1",
		Issuer:  issuer,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	good, _ := IssueToken("person-1", "secret", time.Hour)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"garbage", "not-a-jwt", "secret"},
		{"wrong secret", good, "other"},
		{"expired", expired, "secret"},
		{"wrong issuer", wrongIssuer, "secret"},
		{"none algorithm", noneAlg, "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"lowercase scheme", "bearer abc", "abc", nil},
		{"missing", "", "", ErrMissingToken},
		{"basic auth", "Basic dXNlcjpwYXNz", "", ErrInvalidToken},
		{"no token", "Bearer ", "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := BearerToken(r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("BearerToken() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BearerToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
