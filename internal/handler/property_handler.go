package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/dto"
	"github.com/homeopshq/homeops-api/internal/service"
)

// PropertyHandler serves the property surface. The property-access guard has
// already resolved the path identifier (public uid or internal integer id) to
// the internal id by the time these run.
type PropertyHandler struct {
	tenants service.TenantService
	logger  *zap.Logger
}

// NewPropertyHandler creates the property handler
func NewPropertyHandler(tenants service.TenantService, logger *zap.Logger) *PropertyHandler {
	return &PropertyHandler{tenants: tenants, logger: logger}
}

// Get handles GET /properties/:propertyId
func (h *PropertyHandler) Get(c *gin.Context) {
	property, err := h.tenants.GetProperty(c.Request.Context(), ResolvedPropertyID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPropertyResponse(property))
}

// Systems handles GET /properties/:propertyId/systems
func (h *PropertyHandler) Systems(c *gin.Context) {
	systems, err := h.tenants.PropertySystems(c.Request.Context(), ResolvedPropertyID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"systems": systems})
}
