package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/apperr"
	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// BroadcastHandler serves recipient resolution for outbound broadcasts
type BroadcastHandler struct {
	recipients *service.RecipientResolver
	logger     *zap.Logger
}

// NewBroadcastHandler creates the broadcast handler
func NewBroadcastHandler(recipients *service.RecipientResolver, logger *zap.Logger) *BroadcastHandler {
	return &BroadcastHandler{recipients: recipients, logger: logger}
}

// Recipients handles POST /broadcasts/recipients, returning the full
// deduplicated audience for the caller's scope
func (h *BroadcastHandler) Recipients(c *gin.Context) {
	mode, ids, ok := h.bindMode(c)
	if !ok {
		return
	}

	set, err := h.recipients.Resolve(c.Request.Context(), PrincipalFrom(c), mode, ids)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRecipientsResponse(set))
}

// Estimate handles POST /broadcasts/estimate, returning only the audience
// size
func (h *BroadcastHandler) Estimate(c *gin.Context) {
	mode, ids, ok := h.bindMode(c)
	if !ok {
		return
	}

	count, err := h.recipients.Estimate(c.Request.Context(), PrincipalFrom(c), mode, ids)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.EstimateResponse{Count: count})
}

func (h *BroadcastHandler) bindMode(c *gin.Context) (service.RecipientMode, []int64, bool) {
	var req dto.BroadcastRecipientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return "", nil, false
	}

	mode := service.RecipientMode(req.Mode)
	if !mode.Valid() {
		respondError(c, h.logger, apperr.Newf(apperr.KindInputInvalid, "unknown recipient mode %q", req.Mode))
		return "", nil, false
	}
	return mode, req.IDs, true
}
