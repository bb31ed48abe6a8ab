package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realty-api/internal/domain"
)

// Pinger reporta si el almacen responde.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter configura el router de Gin con middlewares y rutas bajo /api.
func NewRouter(
	logger *zap.Logger,
	authn Authenticator,
	authH *AuthHandler,
	adminH *AdminHandler,
	health Pinger,
) *gin.Engine {
	registerValidation()

	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), recoveryMiddleware(logger), jsonContentTypeMiddleware())

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found")
	})

	api := r.Group("/api")
	api.GET("/healthz", healthHandler(health))

	auth := api.Group("/auth")
	auth.POST("/login", authH.Login)
	auth.POST("/register", authH.Register)
	auth.POST("/logout", authH.Logout)

	profile := auth.Group("", RequireAuth(authn))
	profile.GET("/profile", authH.GetProfile)
	profile.PUT("/profile", authH.UpdateProfile)
	profile.PATCH("/profile", authH.UpdateProfile)
	profile.POST("/verify-email/request", authH.RequestVerification)
	profile.POST("/verify-email/confirm", authH.VerifyEmail)

	admin := api.Group("/admin", RequireAuth(authn), RequireRole(authn, domain.RoleAdmin))
	admin.PATCH("/users/:id/role", adminH.SetRole)

	return r
}

func healthHandler(health Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				respondError(c, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		respondData(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := c.GetString(userIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		logger.Info("request", fields...)
	}
}

func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, "internal error")
	})
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
