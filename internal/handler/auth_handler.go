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

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth  service.AuthService
	perms service.PermissionService
	log   *logger.Logger
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(auth service.AuthService, perms service.PermissionService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:  auth,
		perms: perms,
		log:   log,
	}
}

// Login authenticates a user with user_id and password
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// One body for unknown user, wrong password, and inactive
			// account.
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", "")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.Success(c, resp)
}

// Refresh exchanges a refresh token for a new access token
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	resp, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", "")
			return
		}
		h.log.Error("refresh failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	response.Success(c, resp)
}

// Permissions lists the caller's active menu grants
// GET /api/v1/auth/permissions
func (h *AuthHandler) Permissions(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Unauthorized(c, "Authentication required")
		return
	}

	perms, err := h.perms.List(c.Request.Context(), session)
	if err != nil {
		h.log.Error("permission listing failed", zap.String("user_id", session.UserID), zap.Error(err))
		response.InternalError(c)
		return
	}

	items := make([]dto.PermissionItem, 0, len(perms))
	for _, p := range perms {
		items = append(items, dto.PermissionItem{
			MenuNo:    p.MenuNo,
			CanRead:   p.CanRead,
			CanWrite:  p.CanWrite,
			CanDelete: p.CanDelete,
		})
	}

	response.Success(c, gin.H{
		"group_id":    session.GroupID,
		"permissions": items,
	})
}
