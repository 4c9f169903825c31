package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// UserHandler serves the user surface
type UserHandler struct {
	tenants service.TenantService
	logger  *zap.Logger
}

// NewUserHandler creates the user handler
func NewUserHandler(tenants service.TenantService, logger *zap.Logger) *UserHandler {
	return &UserHandler{tenants: tenants, logger: logger}
}

// Me handles GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	claims := ClaimsFrom(c)

	user, err := h.tenants.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// Get handles GET /users/:userId, guarded by shared-account visibility
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	user, err := h.tenants.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdateProfile handles PATCH /users/:userId, guarded self-or-admin
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	user, err := h.tenants.UpdateProfile(c.Request.Context(), id, req.DisplayName, req.Image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:userId; super-admin only, and never for a
// user who still owns an account
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	if err := h.tenants.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}

// Accounts handles GET /users/:userId/accounts
func (h *UserHandler) Accounts(c *gin.Context) {
	id, ok := h.pathID(c, "userId")
	if !ok {
		return
	}

	accounts, err := h.tenants.AccountsForUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, dto.NewAccountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

func (h *UserHandler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, h.logger, apperr.Newf(apperr.KindInputInvalid, "invalid %s", name))
		return 0, false
	}
	return id, true
}
