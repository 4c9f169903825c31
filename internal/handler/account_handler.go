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

// AccountHandler serves the account surface; routes are guarded by account
// membership
type AccountHandler struct {
	tenants service.TenantService
	logger  *zap.Logger
}

// NewAccountHandler creates the account handler
func NewAccountHandler(tenants service.TenantService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{tenants: tenants, logger: logger}
}

// Get handles GET /accounts/:accountId
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	account, err := h.tenants.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAccountResponse(account))
}

// Members handles GET /accounts/:accountId/members
func (h *AccountHandler) Members(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	members, err := h.tenants.AccountMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// RemoveMember handles DELETE /accounts/:accountId/members/:userId. Removing
// the sole owner fails with a precondition error.
func (h *AccountHandler) RemoveMember(c *gin.Context) {
	accountID, ok := h.pathID(c)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "invalid userId"))
		return
	}

	if err := h.tenants.RemoveAccountMember(c.Request.Context(), ClaimsFrom(c), accountID, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}

func (h *AccountHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("accountId"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "invalid accountId"))
		return 0, false
	}
	return id, true
}
