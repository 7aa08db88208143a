package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	Deps
}

func NewHealthHandler(d Deps) *HealthHandler {
	return &HealthHandler{Deps: d}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	details := gin.H{"database": "available"}
	if err := h.Repo.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		details["database"] = "unavailable"
		h.Log.WithError(err).Error("database health check failed")
	}

	if h.Cache == nil {
		details["redis"] = "disabled"
	} else if err := h.Cache.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		details["redis"] = "unavailable"
		h.Log.WithError(err).Warn("redis health check failed")
	} else {
		details["redis"] = "available"
	}

	body := gin.H{"status": "ok", "details": details}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
