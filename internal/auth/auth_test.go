package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

type revokedSet map[string]bool

func (s revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

type brokenChecker struct{}

func (brokenChecker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(testSecret, "7", "org@example.com", "organization", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken(testSecret, tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "7" || claims.Role != "organization" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if until := time.Until(claims.Expiry()); until <= 0 || until > time.Hour {
		t.Fatalf("unexpected expiry %v", claims.Expiry())
	}

	if _, err := ValidateToken("other", tok); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "1"})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(testSecret, s); err == nil {
		t.Fatal("HS512 token must be rejected")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("secret1", hash) {
		t.Fatal("expected password to match")
	}
	if CheckPassword("secret2", hash) {
		t.Fatal("expected mismatch")
	}
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			t.Error("claims missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	tok, _ := GenerateToken(testSecret, "1", "v@example.com", "volunteer", time.Hour)
	claims, _ := ValidateToken(testSecret, tok)

	tests := []struct {
		name    string
		token   string
		revoked RevocationChecker
		want    int
	}{
		{"missing", "", nil, http.StatusUnauthorized},
		{"garbage", "abc", nil, http.StatusUnauthorized},
		{"valid", tok, nil, http.StatusNoContent},
		{"valid not revoked", tok, revokedSet{}, http.StatusNoContent},
		{"revoked", tok, revokedSet{claims.ID: true}, http.StatusUnauthorized},
		{"store failure", tok, brokenChecker{}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(Middleware(testSecret, tt.revoked)(ok), tt.token)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Middleware(testSecret, nil)(RequireRole("organization")(ok))

	org, _ := GenerateToken(testSecret, "1", "o@example.com", "organization", time.Hour)
	vol, _ := GenerateToken(testSecret, "2", "v@example.com", "volunteer", time.Hour)

	if rec := serve(h, org); rec.Code != http.StatusNoContent {
		t.Fatalf("organization should pass, got %d", rec.Code)
	}
	if rec := serve(h, vol); rec.Code != http.StatusForbidden {
		t.Fatalf("volunteer should be forbidden, got %d", rec.Code)
	}
	if rec := serve(RequireRole("organization")(ok), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no claims should be unauthorized, got %d", rec.Code)
	}
}
