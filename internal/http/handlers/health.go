package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	dbPing    func(ctx context.Context) error
	redisPing func(ctx context.Context) error
}

// Nil ping funcs are skipped, so a redis-less deployment is still ready.
func NewHealthHandler(dbPing, redisPing func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, redisPing: redisPing}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.dbPing != nil {
		if err := h.dbPing(cctx); err != nil {
			checks["db"] = "down"
			ready = false
		} else {
			checks["db"] = "up"
		}
	}

	if h.redisPing != nil {
		if err := h.redisPing(cctx); err != nil {
			checks["redis"] = "down"
			ready = false
		} else {
			checks["redis"] = "up"
		}
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
