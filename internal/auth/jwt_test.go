package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callrecovery/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "https://proj.supabase.co/auth/v1", JWTAudience: "authenticated"})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newManager(t)
	now := time.Unix(1700000000, 0).UTC()

	tok, err := m.Issue(now, "user-1", "owner@shop.test", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "owner@shop.test" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Verify(tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	m := newManager(t)
	now := time.Unix(1700000000, 0).UTC()

	other, _ := NewManager(config.AuthConfig{JWTSecret: "other", JWTIssuer: "https://proj.supabase.co/auth/v1", JWTAudience: "authenticated"})
	tok, _ := other.Issue(now, "user-1", "", time.Hour)
	if _, err := m.Verify(tok, now); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	// Anonymous (anon key) tokens carry no user.
	anon := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://proj.supabase.co/auth/v1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: "anon",
	})
	s, _ := anon.SignedString([]byte("secret"))
	if _, err := m.Verify(s, now); err == nil {
		t.Fatalf("expected anon role to be rejected")
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newManager(t)

	r := gin.New()
	r.GET("/me", RequireAccessToken(m), func(c *gin.Context) {
		id, err := AccountID(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	tok, _ := m.Issue(time.Now(), "user-7", "", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user-7" {
		t.Fatalf("expected 200 user-7, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAccountIDMissing(t *testing.T) {
	if _, err := AccountID(context.Background()); err != ErrNoIdentity {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}
