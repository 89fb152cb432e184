// Package catalog converts storefront backend payloads into the canonical
// pricing types. Upstream data arrives in two shapes (products with an
// embedded campaign, or campaigns with a product id list whose entries may be
// ids or whole product objects); the conversion happens here once so the
// pricing core never branches on shape.
//
// Package catalog 将店面后端负载转换为规范的定价类型。
// 上游数据有两种形状（带嵌入活动的商品，或带商品ID列表的活动，
// 列表项可能是ID也可能是完整商品对象）；转换只在这里发生一次，
// 因此定价核心从不根据形状分支。
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID accepts a JSON string or number and keeps its textual form.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog: id must be a string or number: %s", data)
	}
	*id = ID(n.String())
	return nil
}

// Number accepts a JSON number, a numeric string, or null (zero).
type Number float64

// UnmarshalJSON implements json.Unmarshaler. Unparseable strings decode as zero.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("catalog: expected number: %s", data)
	}
	*n = Number(f)
	return nil
}

// Ref is a reference that may be encoded as a bare id or as an object with an
// "id" (or "_id") field.
type Ref struct {
	ID ID
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID    ID `json:"id"`
			MgoID ID `json:"_id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.ID
		if r.ID == "" {
			r.ID = obj.MgoID
		}
		return nil
	}
	return r.ID.UnmarshalJSON(data)
}

// ProductRecord is a product as the backend sends it.
//
// ProductRecord 是后端发送的商品。
type ProductRecord struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       Number `json:"price"`
	Campaign    *Ref   `json:"campaign,omitempty"`
	CampaignID  *Ref   `json:"campaignId,omitempty"`
}

// CampaignRecord is a campaign as the backend sends it. Products may be
// listed under productIds, products, or both.
//
// CampaignRecord 是后端发送的活动。
type CampaignRecord struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	ProductIDs    []Ref  `json:"productIds"`
	Products      []Ref  `json:"products"`
	DiscountType  string `json:"discountType"`
	DiscountValue Number `json:"discountValue"`
	Active        bool   `json:"active"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Color         string `json:"color"`
	Effect        string `json:"effect"`
}

// envelope is the {"data": [...]} wrapper some endpoints use.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// unwrapList returns the JSON array in raw, looking through a data envelope.
// ok is false when raw is not list-like.
func unwrapList(raw []byte) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	switch raw[0] {
	case '[':
		return raw, true
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
			return nil, false
		}
		return unwrapList(env.Data)
	default:
		return nil, false
	}
}

// unwrapObject returns a single JSON object, looking through a data envelope.
func unwrapObject(raw []byte) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && bytes.TrimSpace(env.Data)[0] == '{' {
		return env.Data, true
	}
	return raw, true
}
