// Package mockbackend serves a fake storefront backend from a fixture, for
// local development and end-to-end tests. Fixture records are served as-is,
// so both upstream wire shapes can be exercised.
//
// Package mockbackend 根据固定数据提供一个模拟的店面后端，用于本地开发和端到端测试。
// 固定数据原样返回，因此可以覆盖上游的两种数据形状。
package mockbackend

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// Record is one product or campaign in backend wire shape.
type Record = map[string]any

// Fixture is the data the mock backend serves.
//
// Fixture 是模拟后端提供的数据。
type Fixture struct {
	Products  []Record `json:"products" yaml:"products"`
	Campaigns []Record `json:"campaigns" yaml:"campaigns"`
}

// Options controls how the fixture is served.
type Options struct {
	// Token, when set, is the only bearer token accepted.
	Token string

	// Envelope wraps every body in {"data": ...}.
	Envelope bool

	// Latency delays every response.
	Latency time.Duration
}

// DefaultFixture mixes both wire shapes: campaigns listing product ids or
// product objects, and products embedding a campaign reference.
func DefaultFixture() Fixture {
	return Fixture{
		Products: []Record{
			{"id": 1, "name": "Desk Lamp", "price": 1500, "image": "/img/lamp.png"},
			{"id": 2, "name": "Oak Chair", "price": "800.00"},
			{"id": 3, "name": "Floor Lamp", "price": 300},
			{"id": 4, "name": "Rug", "price": 50, "campaign": Record{"id": 3, "name": "Clearance"}},
			{"id": 5, "name": "Bookshelf", "price": 1200, "campaignId": "4"},
		},
		Campaigns: []Record{
			{"id": 1, "name": "Spring", "productIds": []any{1, "2"}, "discountType": "percent", "discountValue": 20, "active": true, "color": "#2e7d32"},
			{"id": 2, "name": "Flash", "products": []any{Record{"id": 3, "name": "Floor Lamp"}}, "discountType": "fixed", "discountValue": 100, "active": true, "effect": "pulse"},
			{"id": 3, "name": "Clearance", "discountType": "percent", "discountValue": 50, "active": true},
			{"id": 4, "name": "Retired", "discountType": "percent", "discountValue": 90, "active": false},
		},
	}
}

// LoadFixture reads a YAML or JSON fixture file.
//
// LoadFixture 读取YAML或JSON格式的固定数据文件。
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// NewHandler returns the mock backend routes under /api.
//
// NewHandler 返回/api下的模拟后端路由。
func NewHandler(f Fixture, opts Options) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.Use(authorize(opts.Token), delay(opts.Latency))
	{
		api.GET("/products", func(c *gin.Context) {
			respond(c, opts, f.Products)
		})
		api.GET("/products/:id", func(c *gin.Context) {
			id := c.Param("id")
			for _, p := range f.Products {
				if recordID(p) == id {
					respond(c, opts, p)
					return
				}
			}
			c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		})
		api.GET("/campaigns", func(c *gin.Context) {
			respond(c, opts, f.Campaigns)
		})
	}
	return router
}

func respond(c *gin.Context, opts Options, body any) {
	if opts.Envelope {
		body = gin.H{"data": body}
	}
	c.JSON(http.StatusOK, body)
}

func authorize(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Next()
	}
}

func delay(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		select {
		case <-time.After(d):
			c.Next()
		case <-c.Request.Context().Done():
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
	}
}

func recordID(r Record) string {
	for _, key := range []string{"id", "_id"} {
		if v, ok := r[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}
