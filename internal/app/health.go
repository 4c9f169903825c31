package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker pings the backing stores and reports pass/fail. A failing
// dependency is named so operators can tell a database outage from a Redis
// one without reading logs.
type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{infra: infra}
}

func (h *HealthChecker) Handler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, 2)

	go func() { results <- result{"postgres", h.infra.Postgres().Ping(ctx)} }()
	go func() { results <- result{"redis", h.infra.Redis().Ping(ctx)} }()

	failures := gin.H{}
	for i := 0; i < 2; i++ {
		if r := <-results; r.err != nil {
			failures[r.name] = r.err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"failed": failures,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pass"})
}
