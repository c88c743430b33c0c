package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/health"
)

type HealthHandler struct {
	agg *health.Aggregator
}

func NewHealthHandler(agg *health.Aggregator) *HealthHandler {
	return &HealthHandler{agg: agg}
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, h.agg.Liveness())
}

func (h *HealthHandler) Ready(c *gin.Context) {
	verdict := h.agg.Readiness(c.Request.Context())
	if !verdict.Ready {
		_ = c.Error(apperrors.Unavailable("Service not ready: "+verdict.Cause, nil))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Ready"})
}
