package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// HealthHandler serves liveness and version endpoints
type HealthHandler struct {
	build BuildInfo
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(build BuildInfo) *HealthHandler {
	return &HealthHandler{build: build}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"service": "landprice-rag",
		"version": h.build.Version,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}
