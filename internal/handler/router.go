package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"landprice/internal/config"
)

// RouterOptions holds everything NewRouter wires together
type RouterOptions struct {
	Server   config.ServerConfig
	Build    BuildInfo
	Answerer Answerer
	Logger   zerolog.Logger
	// Frontend handles unmatched paths outside /api, nil for a JSON 404
	Frontend gin.HandlerFunc
}

// NewRouter builds the HTTP router
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(opts.Logger))
	router.Use(cors.New(corsConfig(opts.Server)))

	health := NewHealthHandler(opts.Build)
	router.GET("/health", health.Health)
	router.GET("/version", health.Version)

	messages := NewMessageHandler(opts.Answerer)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(APIKeyAuth(opts.Server.APIKey))
	{
		apiV1.POST("/messages", messages.Post)
	}

	router.NoRoute(func(c *gin.Context) {
		if opts.Frontend != nil && !strings.HasPrefix(c.Request.URL.Path, "/api") {
			opts.Frontend(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})

	return router
}

func corsConfig(server config.ServerConfig) cors.Config {
	corsCfg := cors.DefaultConfig()

	origins := splitList(server.AllowedOrigins)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	if methods := splitList(server.AllowedMethods); len(methods) > 0 {
		corsCfg.AllowMethods = methods
	}
	if headers := splitList(server.AllowedHeaders); len(headers) > 0 {
		corsCfg.AllowHeaders = headers
	}
	corsCfg.ExposeHeaders = []string{RequestIDHeader}
	return corsCfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
