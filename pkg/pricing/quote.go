package pricing

import "github.com/shopspring/decimal"

// Line is one cart entry to quote.
type Line struct {
	ProductID ProductID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// QuotedLine is a priced cart entry.
type QuotedLine struct {
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
	Price     PriceInfo `json:"price"`
	LineTotal float64   `json:"line_total"`
}

// CartQuote totals a cart. Amounts are summed in decimal and rounded half-up.
//
// CartQuote 汇总购物车。金额以十进制累加并四舍五入。
type CartQuote struct {
	Lines    []QuotedLine `json:"lines"`
	Subtotal float64      `json:"subtotal"`
	Savings  float64      `json:"savings"`
	Total    float64      `json:"total"`
	Missing  []ProductID  `json:"missing,omitempty"`
}

// Quote prices every line against products and the active campaigns. Lines
// whose product is unknown are listed in Missing; lines with a non-positive
// quantity are skipped.
func (pr Pricer) Quote(lines []Line, products map[ProductID]Product, active []Campaign) CartQuote {
	quote := CartQuote{Lines: make([]QuotedLine, 0, len(lines))}
	subtotal, total := decimal.Zero, decimal.Zero

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		p, ok := products[line.ProductID]
		if !ok {
			quote.Missing = append(quote.Missing, line.ProductID)
			continue
		}

		info := pr.Info(p, active)
		qty := decimal.NewFromInt(int64(line.Quantity))
		lineOriginal := decimal.NewFromFloat(info.OriginalPrice).Mul(qty)
		lineTotal := decimal.NewFromFloat(info.FinalPrice).Mul(qty)

		subtotal = subtotal.Add(lineOriginal)
		total = total.Add(lineTotal)
		quote.Lines = append(quote.Lines, QuotedLine{
			Product:   p,
			Quantity:  line.Quantity,
			Price:     info,
			LineTotal: roundPrice(lineTotal).InexactFloat64(),
		})
	}

	quote.Subtotal = roundPrice(subtotal).InexactFloat64()
	quote.Total = roundPrice(total).InexactFloat64()
	quote.Savings = roundPrice(subtotal.Sub(total)).InexactFloat64()
	return quote
}

// Quote totals a cart with the default Pricer.
func Quote(lines []Line, products map[ProductID]Product, active []Campaign) CartQuote {
	return Pricer{}.Quote(lines, products, active)
}
