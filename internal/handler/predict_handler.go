package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// PredictHandler serves the AI endpoints gated by the monthly budget
type PredictHandler struct {
	predict *service.PredictService
	logger  *zap.Logger
}

// NewPredictHandler creates the predict handler
func NewPredictHandler(predict *service.PredictService, logger *zap.Logger) *PredictHandler {
	return &PredictHandler{predict: predict, logger: logger}
}

// Usage handles GET /predict/usage, reporting budget state for the caller's
// account
func (h *PredictHandler) Usage(c *gin.Context) {
	claims := ClaimsFrom(c)

	status, err := h.predict.Usage(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUsageResponse(status))
}

// PropertyDetails handles POST /predict/property-details. Over-budget calls
// fail with 429 before the upstream is contacted.
func (h *PredictHandler) PropertyDetails(c *gin.Context) {
	var req dto.PredictPropertyDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	claims := ClaimsFrom(c)
	result, usage, err := h.predict.PropertyDetails(c.Request.Context(), claims.UserID, req.Address)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.PredictResponse{
		Result: result,
		Usage: dto.PredictUsageInfo{
			Model:            usage.Model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			Cost:             usage.Cost,
		},
	})
}
