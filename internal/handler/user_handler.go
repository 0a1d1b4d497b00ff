package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moon4656/skyboot-core/internal/dto"
	"github.com/moon4656/skyboot-core/internal/middleware"
	"github.com/moon4656/skyboot-core/internal/service"
	"github.com/moon4656/skyboot-core/pkg/logger"
	"github.com/moon4656/skyboot-core/pkg/response"
)

// UserHandler handles endpoints about the authenticated user
type UserHandler struct {
	auth service.AuthService
	log  *logger.Logger
}

// NewUserHandler creates a UserHandler
func NewUserHandler(auth service.AuthService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		auth: auth,
		log:  log,
	}
}

// Profile returns the authenticated user's profile
// GET /api/v1/users/profile
func (h *UserHandler) Profile(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// Token outlived the account
			response.NotFound(c, "User not found")
			return
		}
		h.log.Error("profile read failed", zap.String("user_id", session.UserID), zap.Error(err))
		response.InternalError(c)
		return
	}

	response.Success(c, gin.H{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"email":        user.Email,
		"group_id":     user.GroupID,
		"org_id":       user.OrgID,
		"status_code":  user.StatusCode,
		"created_at":   user.CreatedAt,
	})
}

// ChangePassword replaces the authenticated user's password
// PUT /api/v1/users/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), session.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect", "")
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, "User not found")
		default:
			h.log.Error("password change failed", zap.String("user_id", session.UserID), zap.Error(err))
			response.InternalError(c)
		}
		return
	}

	response.Success(c, gin.H{"message": "Password changed successfully"})
}
