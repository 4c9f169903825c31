package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// AuthHandler serves registration, login and session lifecycle
type AuthHandler struct {
	auth   service.AuthService
	logger *zap.Logger
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	user, pair, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthResponse{
		User:   dto.NewUserResponse(user),
		Tokens: dto.NewTokenPairResponse(pair),
	})
}

// Login handles POST /auth/login. When MFA is enabled the response carries a
// short-lived ticket instead of tokens.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if result.MfaTicket != "" {
		c.JSON(http.StatusOK, dto.MfaTicketResponse{MfaTicket: result.MfaTicket})
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		User:   dto.NewUserResponse(result.User),
		Tokens: dto.NewTokenPairResponse(result.Pair),
	})
}

// Refresh handles POST /auth/refresh. The refresh token is not rotated; only
// a new access token is issued.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	accessToken, expiresIn, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.AccessTokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

// Logout handles POST /auth/logout. Revokes the named refresh token and
// blacklists the presented access token for its remaining lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBindError(c, h.logger, err)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, ClaimsFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}

// LogoutAll handles POST /auth/logout-all, revoking every refresh token of
// the authenticated user
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	claims := ClaimsFrom(c)
	if claims == nil {
		respondError(c, h.logger, apperr.New(apperr.KindUnauthorized, "authentication required"))
		return
	}

	if err := h.auth.LogoutAll(c.Request.Context(), claims.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.OkResponse{OK: true})
}
