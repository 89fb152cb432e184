package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrencySymbol prefixes fixed-amount badges.
	DefaultCurrencySymbol = "$"

	// pricePlaces is the number of decimals every price is rounded to.
	pricePlaces = 2
)

var hundred = decimal.NewFromInt(100)

// Pricer evaluates prices with a configured resolver and badge currency.
// The zero value resolves in list order and uses "$".
//
// Pricer 使用配置的解析器和徽章货币符号计算价格。
// 零值按列表顺序解析并使用"$"。
type Pricer struct {
	Resolver       Resolver
	CurrencySymbol string
}

// NewPricer returns a Pricer for the given resolution and currency symbol.
func NewPricer(resolution Resolution, currencySymbol string) Pricer {
	return Pricer{Resolver: NewResolver(resolution), CurrencySymbol: currencySymbol}
}

func (pr Pricer) resolver() Resolver {
	if len(pr.Resolver.Rules) == 0 {
		return defaultResolver
	}
	return pr.Resolver
}

func (pr Pricer) currency() string {
	if pr.CurrencySymbol == "" {
		return DefaultCurrencySymbol
	}
	return pr.CurrencySymbol
}

// FinalPrice returns the product price after the applicable active campaign.
// Without a campaign the base price is returned unchanged.
//
// FinalPrice 返回应用适用活动后的商品价格。没有活动时原样返回基础价格。
func (pr Pricer) FinalPrice(p Product, active []Campaign) float64 {
	base := sanitizePrice(p.Price)
	c, ok := pr.resolver().Resolve(p, active)
	if !ok {
		return base
	}
	return discounted(base, c).InexactFloat64()
}

// FinalPrice prices p with the default Pricer.
func FinalPrice(p Product, active []Campaign) float64 {
	return Pricer{}.FinalPrice(p, active)
}

// discounted applies c to base. The result is rounded half-up to two places
// and clamped to [0, base].
func discounted(base float64, c Campaign) decimal.Decimal {
	original := decimal.NewFromFloat(base)
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return original
	}
	value := decimal.NewFromFloat(c.Value)

	var final decimal.Decimal
	switch c.Kind {
	case Percent:
		final = original.Mul(decimal.NewFromInt(1).Sub(value.Div(hundred)))
	case Fixed:
		final = original.Sub(value)
	default:
		return original
	}

	// Round before clamping so a sub-cent base price can never round upwards.
	final = roundPrice(final)
	if final.IsNegative() {
		return decimal.Zero
	}
	if final.GreaterThan(original) {
		return original
	}
	return final
}

// roundPrice rounds half away from zero, which is half-up for the
// non-negative amounts priced here.
func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(pricePlaces)
}

// sanitizePrice treats missing, negative and non-finite prices as zero.
func sanitizePrice(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}
