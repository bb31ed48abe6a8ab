package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realty-api/internal/domain"
	"realty-api/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	authUserKey   = "auth_user"
	userIDKey     = "user_id"
)

// Authenticator resuelve tokens y usuarios para el gateway.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Claims, error)
	GetProfile(ctx context.Context, userID string) (domain.User, error)
}

// RequireAuth valida el bearer token en cada request y guarda claims en el contexto.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			respondError(c, http.StatusInternalServerError, "auth not configured")
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondError(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrJWTExpired) {
				respondError(c, http.StatusUnauthorized, "token expired")
				return
			}
			respondError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

// RequireRole carga el usuario autenticado y exige uno de los roles dados.
// Debe ir despues de RequireAuth.
func RequireRole(auth Authenticator, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "missing token")
			return
		}
		user, err := auth.GetProfile(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				respondError(c, http.StatusUnauthorized, "invalid token")
				return
			}
			respondError(c, http.StatusInternalServerError, "internal error")
			return
		}
		if !user.HasRole(roles...) {
			respondError(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
