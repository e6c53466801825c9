//go:build !embed
// +build !embed

package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// frontendHandler points browsers at the separately served chat client
func frontendHandler(log zerolog.Logger) gin.HandlerFunc {
	log.Info().Msg("Frontend is served separately in development mode")

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Frontend is running separately",
			"dev_url": "http://localhost:5173",
			"hint":    "Run 'cd client && npm run dev' to start the frontend",
		})
	}
}
