package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homeopshq/homeops-api/internal/policy"
)

// Guarded adapts a policy guard into gin middleware. Guard parameters are
// looked up in the path first, then the query string; guards whose parameter
// lives in the request body are checked inside the handler instead.
func Guarded(engine *policy.Engine, logger *zap.Logger, guard policy.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := map[string]string{}
		if guard.Param != "" {
			if v := c.Param(guard.Param); v != "" {
				params[guard.Param] = v
			} else if v := c.Query(guard.Param); v != "" {
				params[guard.Param] = v
			}
		}

		decision, err := engine.Check(c.Request.Context(), PrincipalFrom(c), guard, params)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if decision.ResolvedPropertyID != 0 {
			c.Set(propertyContextKey, decision.ResolvedPropertyID)
		}
		c.Next()
	}
}
