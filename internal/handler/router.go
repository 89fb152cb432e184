package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/shopfront/internal/middleware"
	"github.com/yourusername/shopfront/internal/storefront"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Service *storefront.Service

	// Metrics serves the Prometheus exposition at MetricsPath; nil disables it.
	Metrics     http.Handler
	MetricsPath string

	// Health adds fields to the /healthz body.
	Health func() gin.H
}

// NewRouter builds the gin engine with every route and middleware.
//
// NewRouter 构建包含所有路由和中间件的gin引擎。
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if opts.Health != nil {
			for k, v := range opts.Health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(opts.Metrics))
	}

	h := New(opts.Service)
	api := router.Group("/api/v1")
	api.Use(middleware.CacheMetrics(opts.Service.CacheStats))
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/campaigns/active", h.ActiveCampaigns)
		api.POST("/cart/quote", h.Quote)
		api.POST("/pricing/evaluate", h.Evaluate)
		api.POST("/cache/invalidate", h.Invalidate)
	}
	return router
}
