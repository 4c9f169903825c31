package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// OAuthHandler serves the Google authorization-code flow
type OAuthHandler struct {
	oauth  service.OAuthService
	logger *zap.Logger
}

// NewOAuthHandler creates the OAuth handler
func NewOAuthHandler(oauth service.OAuthService, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, logger: logger}
}

// Begin handles GET /auth/google. intent=signin|signup selects the behavior
// for unknown emails; browsers get a 302, API clients the URL as JSON.
func (h *OAuthHandler) Begin(c *gin.Context) {
	intent := c.DefaultQuery("intent", "signin")

	url, err := h.oauth.Begin(c.Request.Context(), intent)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if c.Query("redirect") == "false" {
		c.JSON(http.StatusOK, dto.OAuthBeginResponse{URL: url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback handles GET /auth/google/callback, redirecting the browser to the
// web origin with a one-time login code
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		respondError(c, h.logger, apperr.New(apperr.KindInputInvalid, "missing code or state"))
		return
	}

	redirect, err := h.oauth.Complete(c.Request.Context(), code, state)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Redirect(http.StatusFound, redirect)
}

// Exchange handles POST /auth/google/exchange, redeeming the one-time login
// code for a token pair
func (h *OAuthHandler) Exchange(c *gin.Context) {
	var req dto.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	pair, err := h.oauth.Exchange(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenPairResponse(pair))
}
