package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"realty-api/internal/domain"
	"realty-api/internal/service"
)

type stubAuthenticator struct {
	tokens *service.JWTService
	users  map[string]domain.User
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (service.Claims, error) {
	return s.tokens.Verify(ctx, token)
}

func (s stubAuthenticator) GetProfile(_ context.Context, userID string) (domain.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, service.ErrUserNotFound
	}
	return user, nil
}

func newStubAuthenticator() stubAuthenticator {
	return stubAuthenticator{
		tokens: service.NewJWTService("secret", 15*time.Minute),
		users: map[string]domain.User{
			"u1":    {ID: "u1", Role: domain.RoleUser},
			"admin": {ID: "admin", Role: domain.RoleAdmin},
		},
	}
}

func protectedRouter(auth Authenticator, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{RequireAuth(auth)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(auth, roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		if len(roles) > 0 {
			if user, ok := GetAuthUser(c); !ok || user.ID != claims.UserID {
				c.Status(http.StatusTeapot)
				return
			}
		}
		c.String(http.StatusOK, claims.UserID)
	})
	r.GET("/protected", handlers...)
	return r
}

func serveProtected(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_AllowsValidToken(t *testing.T) {
	auth := newStubAuthenticator()
	issued, err := auth.tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := serveProtected(protectedRouter(auth), "Bearer "+issued.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "u1" {
		t.Fatalf("expected user id in context, got %q", rec.Body.String())
	}

	rec = serveProtected(protectedRouter(auth), "bearer "+issued.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected case-insensitive scheme, got %d", rec.Code)
	}
}

func TestRequireAuth_RejectsMissingOrMalformedHeader(t *testing.T) {
	r := protectedRouter(newStubAuthenticator())

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "token-without-scheme"} {
		rec := serveProtected(r, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireAuth_RejectsTamperedToken(t *testing.T) {
	auth := newStubAuthenticator()
	issued, _ := auth.tokens.Issue("u1")
	tampered := []byte(issued.Token)
	mid := len(tampered) - 10
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	rec := serveProtected(protectedRouter(auth), "Bearer "+string(tampered))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	auth := newStubAuthenticator()
	userToken, _ := auth.tokens.Issue("u1")
	adminToken, _ := auth.tokens.Issue("admin")
	ghostToken, _ := auth.tokens.Issue("ghost")
	r := protectedRouter(auth, domain.RoleAdmin)

	if rec := serveProtected(r, "Bearer "+userToken.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", rec.Code)
	}
	if rec := serveProtected(r, "Bearer "+adminToken.Token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
	if rec := serveProtected(r, "Bearer "+ghostToken.Token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing user, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":     "abc",
		"  BEARER  abc ": "abc",
	}
	for header, want := range cases {
		got, ok := bearerToken(header)
		if !ok || got != want {
			t.Fatalf("bearerToken(%q)=%q,%v want %q", header, got, ok, want)
		}
	}
	if _, ok := bearerToken("Token abc"); ok {
		t.Fatalf("expected other scheme rejected")
	}
}
