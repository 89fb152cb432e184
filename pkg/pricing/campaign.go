// Package pricing applies campaign discounts to product prices.
// Everything in this package is a pure function over caller supplied data:
// no I/O, no package state, and no errors for bad input shapes. Results are
// always clamped to [0, base price] and rounded half-up to two decimals.
//
// Package pricing 将活动折扣应用于商品价格。
// 本包中的一切都是对调用方提供数据的纯函数：没有I/O、没有包级状态，
// 也不会因输入形状错误而返回错误。结果始终限制在[0, 原价]范围内，
// 并四舍五入到两位小数。
package pricing

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// ProductID identifies a product. Numeric upstream ids are carried in their
// decimal string form.
type ProductID string

// Product is the canonical product representation used by the pricing core.
//
// Product 是定价核心使用的规范商品表示。
type Product struct {
	ID          ProductID `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image,omitempty"`

	// Price is the base price. Negative or non-finite values are priced as zero.
	// Price 是基础价格。负数或非有限值按零计价。
	Price float64 `json:"price"`

	// CampaignID is the embedded campaign reference, empty when the product
	// arrived without one.
	// CampaignID 是嵌入的活动引用，商品未携带时为空。
	CampaignID string `json:"campaign_id,omitempty"`
}

// DiscountKind is the way a campaign reduces a price.
type DiscountKind string

const (
	// Percent reduces the price proportionally; the value is read as 0-100.
	Percent DiscountKind = "percent"
	// Fixed subtracts a flat currency amount.
	Fixed DiscountKind = "fixed"
)

// ParseDiscountKind maps the spellings used by the admin back-office onto a
// DiscountKind. ok is false for unknown kinds.
func ParseDiscountKind(s string) (kind DiscountKind, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "percent", "percentage", "%":
		return Percent, true
	case "fixed", "fixed_amount", "amount":
		return Fixed, true
	default:
		return "", false
	}
}

// ProductSet is a set of product identifiers.
type ProductSet map[ProductID]struct{}

// NewProductSet builds a set from ids, ignoring empty ones.
func NewProductSet(ids ...ProductID) ProductSet {
	set := make(ProductSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id is in the set. A nil set contains nothing.
func (s ProductSet) Contains(id ProductID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order, for stable output.
func (s ProductSet) Sorted() []ProductID {
	ids := make([]ProductID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarshalJSON encodes the set as a sorted array.
func (s ProductSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of ids.
func (s *ProductSet) UnmarshalJSON(data []byte) error {
	var ids []ProductID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewProductSet(ids...)
	return nil
}

// GobEncode encodes the set as a sorted slice.
func (s ProductSet) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.Sorted()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode decodes a slice written by GobEncode.
func (s *ProductSet) GobDecode(data []byte) error {
	var ids []ProductID
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ids); err != nil {
		return err
	}
	*s = NewProductSet(ids...)
	return nil
}

// Campaign is a discount rule attached to a set of products.
//
// Campaign 是附加到一组商品上的折扣规则。
type Campaign struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	ProductIDs ProductSet   `json:"product_ids"`
	Kind       DiscountKind `json:"discount_type"`
	Value      float64      `json:"discount_value"`
	Active     bool         `json:"active"`
	StartsAt   *time.Time   `json:"starts_at,omitempty"`
	EndsAt     *time.Time   `json:"ends_at,omitempty"`

	// Presentation hints, ignored by pricing.
	Color  string `json:"color,omitempty"`
	Effect string `json:"effect,omitempty"`
}

// Covers reports whether the campaign lists the product id.
func (c Campaign) Covers(id ProductID) bool {
	return c.ProductIDs.Contains(id)
}
