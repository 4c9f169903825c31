package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/policy"
	"github.com/homeopshq/homeops-api/internal/service"
)

// InvitationHandler serves the invitation lifecycle. Creation guards read
// their target from the request body, so the policy check runs here rather
// than in route middleware.
type InvitationHandler struct {
	invitations service.InvitationService
	engine      *policy.Engine
	logger      *zap.Logger
}

// NewInvitationHandler creates the invitation handler
func NewInvitationHandler(invitations service.InvitationService, engine *policy.Engine, logger *zap.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, engine: engine, logger: logger}
}

// CreateAccount handles POST /invitations/account. The inviter must be a
// member of the target account (platform admins excepted).
func (h *InvitationHandler) CreateAccount(c *gin.Context) {
	var req dto.AccountInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	guard := policy.RequireAccountMembership("accountId")
	params := map[string]string{"accountId": strconv.FormatInt(req.AccountID, 10)}
	if _, err := h.engine.Check(c.Request.Context(), PrincipalFrom(c), guard, params); err != nil {
		respondError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	invitation, token, err := h.invitations.CreateAccountInvitation(c.Request.Context(), claims.UserID, req.InviteeEmail, req.AccountID, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.InvitationResponse{Invitation: invitation, Token: token})
}

// CreateProperty handles POST /invitations/property. Only a property owner
// (or super admin) may invite onto a property.
func (h *InvitationHandler) CreateProperty(c *gin.Context) {
	var req dto.PropertyInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	guard := policy.RequirePropertyOwner("propertyId")
	params := map[string]string{"propertyId": strconv.FormatInt(req.PropertyID, 10)}
	decision, err := h.engine.Check(c.Request.Context(), PrincipalFrom(c), guard, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	invitation, token, err := h.invitations.CreatePropertyInvitation(c.Request.Context(), claims.UserID, req.InviteeEmail, decision.ResolvedPropertyID, req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.InvitationResponse{Invitation: invitation, Token: token})
}

// Validate handles GET /invitations/validate?token=...; no authentication,
// the token itself is the credential
func (h *InvitationHandler) Validate(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "token is required"))
		return
	}

	invitation, err := h.invitations.ValidateToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": invitation})
}

// Accept handles POST /invitations/accept, returning the resulting user
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req dto.InvitationAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	user, err := h.invitations.Accept(c.Request.Context(), req.Token, req.Password, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.NewUserResponse(user)})
}

// Confirm handles POST /auth/confirm: the same redemption as Accept with a
// bare acknowledgement body, kept for clients that finish signup out-of-band
func (h *InvitationHandler) Confirm(c *gin.Context) {
	var req dto.InvitationAcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	if _, err := h.invitations.Accept(c.Request.Context(), req.Token, req.Password, req.Name); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// Decline handles POST /invitations/:invitationId/decline. Only the invitee
// (matched by email) or a platform admin may decline.
func (h *InvitationHandler) Decline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "invalid invitation id"))
		return
	}

	invitation, err := h.invitations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	if !claims.Role.IsPlatformAdmin() && !strings.EqualFold(claims.Email, invitation.InviteeEmail) {
		respondError(c, h.logger, apperr.New(apperr.KindForbidden, "access denied"))
		return
	}

	if err := h.invitations.Decline(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}

// Revoke handles POST /invitations/:invitationId/revoke. Only the inviter or
// a platform admin may revoke.
func (h *InvitationHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "invalid invitation id"))
		return
	}

	invitation, err := h.invitations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	if !claims.Role.IsPlatformAdmin() && claims.UserID != invitation.InviterUserID {
		respondError(c, h.logger, apperr.New(apperr.KindForbidden, "access denied"))
		return
	}

	if err := h.invitations.Revoke(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}
