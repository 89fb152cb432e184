package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// PriceInfo is the display bundle for one product.
//
// PriceInfo 是单个商品的展示数据包。
type PriceInfo struct {
	OriginalPrice float64 `json:"original_price"`
	FinalPrice    float64 `json:"final_price"`
	Savings       float64 `json:"savings"`
	HasDiscount   bool    `json:"has_discount"`
	BadgeText     string  `json:"badge_text,omitempty"`
	CampaignID    string  `json:"campaign_id,omitempty"`
}

// Info prices p against the active campaigns and formats the badge.
// HasDiscount is set only when a campaign applies and actually lowers the price.
//
// Info 根据有效活动为p定价并格式化徽章。
// 仅当活动适用且确实降低价格时才设置HasDiscount。
func (pr Pricer) Info(p Product, active []Campaign) PriceInfo {
	base := sanitizePrice(p.Price)
	info := PriceInfo{OriginalPrice: base, FinalPrice: base}

	c, ok := pr.resolver().Resolve(p, active)
	if !ok {
		return info
	}

	final := discounted(base, c)
	original := decimal.NewFromFloat(base)
	info.FinalPrice = final.InexactFloat64()
	if !final.LessThan(original) {
		return info
	}

	info.HasDiscount = true
	info.CampaignID = c.ID
	info.Savings = roundPrice(original.Sub(final)).InexactFloat64()
	info.BadgeText = pr.BadgeText(c)
	return info
}

// Info prices p with the default Pricer.
func Info(p Product, active []Campaign) PriceInfo {
	return Pricer{}.Info(p, active)
}

// BadgeText formats the short discount label, e.g. "-20% OFF" or "-$500 OFF".
// Trailing zeros are dropped so 12.50 renders as 12.5.
func (pr Pricer) BadgeText(c Campaign) string {
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return ""
	}
	amount := decimal.NewFromFloat(c.Value).String()
	switch c.Kind {
	case Percent:
		return "-" + amount + "% OFF"
	case Fixed:
		return "-" + pr.currency() + amount + " OFF"
	default:
		return ""
	}
}

// BadgeText formats the badge with the default currency symbol.
func BadgeText(c Campaign) string {
	return Pricer{}.BadgeText(c)
}
