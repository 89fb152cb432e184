package storefront

import (
	"strings"

	"github.com/yourusername/shopfront/pkg/pricing"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxQuoteLines   = 200
)

// PricedProduct is a product together with its display price.
type PricedProduct struct {
	pricing.Product
	Pricing pricing.PriceInfo `json:"pricing"`
}

// ProductList represents a page of priced products with pagination info
type ProductList struct {
	Products []PricedProduct `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ProductFilter represents the filter criteria for products. Price bounds
// apply to the final (discounted) price; zero means unbounded.
//
// ProductFilter 表示商品的过滤条件。价格区间作用于最终（折后）价格，零表示不限。
type ProductFilter struct {
	Query      string  `form:"q"`
	MinPrice   float64 `form:"min_price"`
	MaxPrice   float64 `form:"max_price"`
	Discounted bool    `form:"discounted"`
	Page       int     `form:"page,default=1"`
	PageSize   int     `form:"page_size,default=20"`
}

func (f ProductFilter) normalized() ProductFilter {
	f.Query = strings.ToLower(strings.TrimSpace(f.Query))
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return f
}

func (f ProductFilter) matchesName(p pricing.Product) bool {
	if f.Query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), f.Query) ||
		strings.Contains(strings.ToLower(p.Description), f.Query)
}

func (f ProductFilter) matchesPrice(info pricing.PriceInfo) bool {
	if f.Discounted && !info.HasDiscount {
		return false
	}
	if f.MinPrice > 0 && info.FinalPrice < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && info.FinalPrice > f.MaxPrice {
		return false
	}
	return true
}

// page returns the slice of items on the filter's page.
func page[T any](items []T, f ProductFilter) []T {
	start := (f.Page - 1) * f.PageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + f.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
