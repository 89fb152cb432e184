package pricing

import (
	"fmt"
	"strings"
)

// Rule decides whether a campaign applies to a product by one matching route.
//
// Rule 通过一种匹配途径判断活动是否适用于商品。
type Rule struct {
	Name  string
	Match func(p Product, c Campaign) bool
}

// EmbeddedReference matches when the product carries the campaign's id.
var EmbeddedReference = Rule{
	Name: "embedded_reference",
	Match: func(p Product, c Campaign) bool {
		return p.CampaignID != "" && p.CampaignID == c.ID
	},
}

// ListMembership matches when the campaign's product list contains the product.
var ListMembership = Rule{
	Name: "list_membership",
	Match: func(p Product, c Campaign) bool {
		return p.ID != "" && c.Covers(p.ID)
	},
}

// Resolution names a tie-break policy for products matched by several campaigns.
type Resolution string

const (
	// ListOrder returns the first campaign, in input order, matched by any rule.
	ListOrder Resolution = "list_order"
	// PreferEmbedded tries rules one at a time: an embedded reference wins over
	// list membership regardless of where the campaigns sit in the input.
	PreferEmbedded Resolution = "prefer_embedded"
)

// ParseResolution validates a resolution name. An empty name is ListOrder.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(s))) {
	case "", ListOrder:
		return ListOrder, nil
	case PreferEmbedded:
		return PreferEmbedded, nil
	default:
		return "", fmt.Errorf("unknown campaign resolution %q (want %s or %s)", s, ListOrder, PreferEmbedded)
	}
}

// Resolver picks the single campaign that applies to a product. Rules are
// evaluated in slice order; Resolution decides whether campaign order or rule
// order is the outer loop.
//
// Resolver 选出适用于商品的唯一活动。
// 规则按切片顺序求值；Resolution决定外层循环是活动顺序还是规则顺序。
type Resolver struct {
	Rules      []Rule
	Resolution Resolution
}

// NewResolver returns a resolver using both matching routes, embedded
// reference first.
func NewResolver(resolution Resolution) Resolver {
	return Resolver{
		Rules:      []Rule{EmbeddedReference, ListMembership},
		Resolution: resolution,
	}
}

// Resolve returns the applicable campaign, if any. It never panics on nil input.
func (r Resolver) Resolve(p Product, campaigns []Campaign) (Campaign, bool) {
	if len(campaigns) == 0 || len(r.Rules) == 0 {
		return Campaign{}, false
	}

	if r.Resolution == PreferEmbedded {
		for _, rule := range r.Rules {
			for _, c := range campaigns {
				if rule.Match(p, c) {
					return c, true
				}
			}
		}
		return Campaign{}, false
	}

	for _, c := range campaigns {
		for _, rule := range r.Rules {
			if rule.Match(p, c) {
				return c, true
			}
		}
	}
	return Campaign{}, false
}

var defaultResolver = NewResolver(ListOrder)

// ResolveCampaign returns the first campaign, by input order, that lists the
// product or that the product references.
//
// ResolveCampaign 返回按输入顺序第一个列出该商品或被该商品引用的活动。
func ResolveCampaign(p Product, campaigns []Campaign) (Campaign, bool) {
	return defaultResolver.Resolve(p, campaigns)
}
