package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realty-api/internal/domain"
	"realty-api/internal/service"
)

// AuthHandler expone login, registro, logout, perfil y verificacion de email.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

// authPayload repite el token en refreshToken: no hay mecanismo de refresh separado.
type authPayload struct {
	User         domain.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

func newAuthPayload(res service.AuthResult) authPayload {
	return authPayload{
		User:         res.User,
		Token:        res.Token,
		RefreshToken: res.Token,
		ExpiresAt:    res.ExpiresAt,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login maneja POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, h.logger, "login", err)
		return
	}
	respondData(c, http.StatusOK, newAuthPayload(res))
}

type registerRequest struct {
	Name     string  `json:"name" binding:"required,max=120"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
	Role     string  `json:"role" binding:"omitempty,oneof=user broker owner developer admin"`
}

// Register maneja POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(c, h.logger, "register", err)
		return
	}
	respondData(c, http.StatusCreated, newAuthPayload(res))
}

// Logout maneja POST /api/auth/logout. Siempre responde 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		h.auth.Logout(c.Request.Context(), token)
	}
	respondMessage(c, http.StatusOK, "logged out", nil)
}

// GetProfile maneja GET /api/auth/profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing token")
		return
	}

	user, err := h.auth.GetProfile(c.Request.Context(), claims.UserID)
	if err != nil {
		writeServiceError(c, h.logger, "get profile", err)
		return
	}
	respondData(c, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=120"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Phone  *string `json:"phone" binding:"omitempty,max=32"`
	Avatar *string `json:"avatar" binding:"omitempty,url"`
}

// UpdateProfile maneja PUT y PATCH /api/auth/profile; solo aplica los campos presentes.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing token")
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), claims.UserID, domain.ProfilePatch{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		AvatarURL: req.Avatar,
	})
	if err != nil {
		writeServiceError(c, h.logger, "update profile", err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// RequestVerification maneja POST /api/auth/verify-email/request.
func (h *AuthHandler) RequestVerification(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing token")
		return
	}

	expiresAt, err := h.auth.RequestEmailVerification(c.Request.Context(), claims.UserID)
	if err != nil {
		writeServiceError(c, h.logger, "request verification", err)
		return
	}
	respondMessage(c, http.StatusOK, "verification code sent", gin.H{"expiresAt": expiresAt})
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyEmail maneja POST /api/auth/verify-email/confirm.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing token")
		return
	}
	var req verifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), claims.UserID, req.Code)
	if err != nil {
		writeServiceError(c, h.logger, "verify email", err)
		return
	}
	respondData(c, http.StatusOK, user)
}
