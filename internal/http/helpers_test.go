package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realty-api/internal/repository/memstore"
	"realty-api/internal/service"
)

type captureMailer struct {
	lastCode string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, _, _, code string, _ time.Time) error {
	m.lastCode = code
	return nil
}

type testEnv struct {
	router *gin.Engine
	auth   *service.AuthService
	store  *memstore.Store
	mailer *captureMailer
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	tokens := service.NewJWTService("test-secret", time.Hour,
		service.WithRevocationStore(service.NewMemoryRevokedTokenStore()),
	)
	mailer := &captureMailer{}
	auth := service.NewAuthService(zap.NewNop(), store, tokens, service.NewBcryptHasher(4), service.WithMailer(mailer))
	logger := zap.NewNop()
	router := NewRouter(logger, auth, NewAuthHandler(logger, auth), NewAdminHandler(logger, auth), nil)
	return testEnv{router: router, auth: auth, store: store, mailer: mailer}
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Fields  []FieldError    `json:"fields"`
}

type authData struct {
	User struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Role          string `json:"role"`
		Avatar        string `json:"avatar"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (e testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func (e testEnv) register(t *testing.T, name, email, password string) authData {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, rec.Code, rec.Body.String())
	}
	var data authData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode auth data: %v", err)
	}
	return data
}
