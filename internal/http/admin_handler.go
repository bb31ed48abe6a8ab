package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"realty-api/internal/service"
)

// AdminHandler agrupa operaciones reservadas al rol admin.
type AdminHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

func NewAdminHandler(logger *zap.Logger, auth *service.AuthService) *AdminHandler {
	return &AdminHandler{logger: logger, auth: auth}
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user broker owner developer admin"`
}

// SetRole maneja PATCH /api/admin/users/:id/role.
func (h *AdminHandler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		writeServiceError(c, h.logger, "set role", err)
		return
	}
	if admin, ok := GetAuthUser(c); ok {
		h.logger.Info("role updated by admin",
			zap.String("admin_id", admin.ID),
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
		)
	}
	respondData(c, http.StatusOK, user)
}
