// Package handler provides the HTTP handlers of the shopfront API.
// It translates HTTP requests into storefront service calls, reads the
// caller's bearer token into explicit credentials, and maps typed errors to
// status codes.
//
// Package handler 提供shopfront API的HTTP处理程序。
// 它将HTTP请求转换为店面服务调用，把调用方的bearer令牌读取为显式凭证，
// 并将类型化错误映射为状态码。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/shopfront/internal/backend"
	"github.com/yourusername/shopfront/internal/storefront"
	"github.com/yourusername/shopfront/pkg/catalog"
	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/pricing"
)

// Handler handles HTTP requests for the storefront pricing API.
//
// Handler 处理店面定价API的HTTP请求。
type Handler struct {
	service *storefront.Service
}

// New creates a handler over the given service.
func New(service *storefront.Service) *Handler {
	return &Handler{service: service}
}

// QuoteRequest is the body of POST /cart/quote.
type QuoteRequest struct {
	Lines []pricing.Line `json:"lines"`
}

// Evaluation is the response of POST /pricing/evaluate.
type Evaluation struct {
	storefront.PricedProduct
	Warnings []string `json:"warnings,omitempty"`
}

// credentials reads the caller's bearer token. A request without one is anonymous.
func credentials(c *gin.Context) backend.Credentials {
	return backend.CredentialsFromToken(c.GetHeader("Authorization"))
}

// fail records err on the context for the request logger and writes the
// public error body.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(shoperrors.HTTPStatus(err), gin.H{"error": shoperrors.PublicMessage(err)})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ListProducts handles GET /products.
//
// Query parameters: q, min_price, max_price, discounted, page, page_size.
//
// ListProducts 处理 GET /products。
func (h *Handler) ListProducts(c *gin.Context) {
	var filter storefront.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.service.ListProducts(c.Request.Context(), credentials(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProduct handles GET /products/:id.
//
// GetProduct 处理 GET /products/:id。
func (h *Handler) GetProduct(c *gin.Context) {
	id := pricing.ProductID(c.Param("id"))
	product, err := h.service.GetProduct(c.Request.Context(), credentials(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ActiveCampaigns handles GET /campaigns/active.
func (h *Handler) ActiveCampaigns(c *gin.Context) {
	campaigns, err := h.service.ActiveCampaigns(c.Request.Context(), credentials(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// Quote handles POST /cart/quote.
//
// Quote 处理 POST /cart/quote。
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), credentials(c), req.Lines)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Evaluate handles POST /pricing/evaluate. The body carries one product and
// the campaigns to consider in backend wire shape; nothing is fetched.
//
// Evaluate 处理 POST /pricing/evaluate。请求体以后端格式携带一个商品及要考虑的活动，不访问后端。
func (h *Handler) Evaluate(c *gin.Context) {
	var req catalog.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, campaigns, warnings := req.Decode()
	c.JSON(http.StatusOK, Evaluation{
		PricedProduct: h.service.Price(product, campaigns),
		Warnings:      warnings,
	})
}

// Invalidate handles POST /cache/invalidate.
func (h *Handler) Invalidate(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
