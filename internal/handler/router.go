package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/chromaproxy/internal/middleware"
)

type RouterDeps struct {
	Collections *CollectionHandler
	Documents   *DocumentHandler
	Query       *QueryHandler
	System      *SystemHandler
	JWTSecret   []byte
	// RateLimit runs after authentication so limits are per subject.
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.System.Health)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
	api.GET("/api-docs", deps.System.OpenAPI)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	if deps.RateLimit != nil {
		authGroup.Use(deps.RateLimit)
	}

	authGroup.POST("/collections", deps.Collections.Create)
	authGroup.GET("/collections", deps.Collections.List)
	authGroup.DELETE("/collections", deps.Collections.Delete)
	authGroup.GET("/collections/:name", deps.Collections.Get)

	authGroup.GET("/collections/:name/documents", deps.Documents.List)
	authGroup.POST("/collections/:name/documents", deps.Documents.Add)
	authGroup.DELETE("/collections/:name/documents", deps.Documents.Delete)
	authGroup.DELETE("/collections/:name/documents/:id", deps.Documents.Delete)

	authGroup.GET("/collections/:name/query", deps.Query.Query)
	authGroup.POST("/collections/:name/query", deps.Query.Query)
}
