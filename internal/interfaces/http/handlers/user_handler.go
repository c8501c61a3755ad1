package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokengate/internal/application/dto"
	"github.com/turtacn/tokengate/internal/application/service"
)

// UserHandler serves endpoints about the authenticated caller.
type UserHandler struct {
	authService service.AuthAppService
	userService service.UserAppService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService service.AuthAppService, userService service.UserAppService) *UserHandler {
	return &UserHandler{authService: authService, userService: userService}
}

// Me returns the subject and authorities of the caller.
func (h *UserHandler) Me(c *gin.Context) {
	result, err := h.authService.Me(c.Request.Context())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, result)
}

// UpdateProfile handles PATCH /users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, dto.BindingError(err))
		return
	}
	if err := h.userService.UpdateProfile(c.Request.Context(), &req); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword handles POST /users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, dto.BindingError(err))
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), &req); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Deactivate handles PATCH /users/me/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	if err := h.userService.Deactivate(c.Request.Context()); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reactivate handles PATCH /users/me/reactivate
func (h *UserHandler) Reactivate(c *gin.Context) {
	if err := h.userService.Reactivate(c.Request.Context()); err != nil {
		dto.SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdminPing answers callers holding the admin authority.
func (h *UserHandler) AdminPing(c *gin.Context) {
	result, err := h.authService.Me(c.Request.Context())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"pong": true, "subject": result.Subject})
}
