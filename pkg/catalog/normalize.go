package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/pricing"
)

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// NormalizeProduct converts a wire product into the canonical form. The
// "campaign" field wins over "campaignId" when both are present.
func NormalizeProduct(r ProductRecord) pricing.Product {
	p := pricing.Product{
		ID:          pricing.ProductID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		ImageURL:    r.Image,
		Price:       float64(r.Price),
	}
	switch {
	case r.Campaign != nil && r.Campaign.ID != "":
		p.CampaignID = string(r.Campaign.ID)
	case r.CampaignID != nil:
		p.CampaignID = string(r.CampaignID.ID)
	}
	return p
}

// NormalizeCampaign converts a wire campaign. ok is false when the discount
// type is unknown; such campaigns cannot price anything and are dropped.
//
// NormalizeCampaign 转换线上活动。折扣类型未知时ok为false。
func NormalizeCampaign(r CampaignRecord) (c pricing.Campaign, ok bool) {
	kind, ok := pricing.ParseDiscountKind(r.DiscountType)
	if !ok {
		return pricing.Campaign{}, false
	}

	ids := make([]pricing.ProductID, 0, len(r.ProductIDs)+len(r.Products))
	for _, ref := range r.ProductIDs {
		ids = append(ids, pricing.ProductID(ref.ID))
	}
	for _, ref := range r.Products {
		ids = append(ids, pricing.ProductID(ref.ID))
	}

	return pricing.Campaign{
		ID:         string(r.ID),
		Name:       r.Name,
		ProductIDs: pricing.NewProductSet(ids...),
		Kind:       kind,
		Value:      float64(r.DiscountValue),
		Active:     r.Active,
		StartsAt:   parseDate(r.StartDate, false),
		EndsAt:     parseDate(r.EndDate, true),
		Color:      r.Color,
		Effect:     r.Effect,
	}, true
}

// parseDate parses a campaign bound. A date-only end bound covers its whole
// day, so it is moved to the last instant of that day.
func parseDate(s string, end bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if end && layout == time.DateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t
	}
	return nil
}

// DecodeProducts decodes a product list, bare or inside {"data": [...]}.
// Products are needed to render anything, so a malformed payload is an error.
func DecodeProducts(raw []byte) ([]pricing.Product, error) {
	list, ok := unwrapList(raw)
	if !ok {
		return nil, fmt.Errorf("%w: product payload is not a list", shoperrors.ErrInvalidInput)
	}
	var records []ProductRecord
	if err := json.Unmarshal(list, &records); err != nil {
		return nil, fmt.Errorf("%w: decode products: %v", shoperrors.ErrInvalidInput, err)
	}
	products := make([]pricing.Product, 0, len(records))
	for _, r := range records {
		products = append(products, NormalizeProduct(r))
	}
	return products, nil
}

// DecodeProduct decodes a single product, bare or inside {"data": {...}}.
func DecodeProduct(raw []byte) (pricing.Product, error) {
	obj, ok := unwrapObject(raw)
	if !ok {
		return pricing.Product{}, fmt.Errorf("%w: product payload is not an object", shoperrors.ErrInvalidInput)
	}
	var r ProductRecord
	if err := json.Unmarshal(obj, &r); err != nil {
		return pricing.Product{}, fmt.Errorf("%w: decode product: %v", shoperrors.ErrInvalidInput, err)
	}
	return NormalizeProduct(r), nil
}

// DecodeCampaigns decodes a campaign list. It never fails: a payload that is
// not list-like yields no campaigns, and campaigns that cannot be decoded or
// have an unknown discount type are skipped. Every skipped item is described
// in warnings so the caller can log it.
//
// DecodeCampaigns 解码活动列表，从不失败：非列表负载产生空活动列表，
// 无法解码或折扣类型未知的活动被跳过，并在warnings中说明。
func DecodeCampaigns(raw []byte) (campaigns []pricing.Campaign, warnings []string) {
	list, ok := unwrapList(raw)
	if !ok {
		return []pricing.Campaign{}, []string{"campaign payload is not a list"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return []pricing.Campaign{}, []string{fmt.Sprintf("campaign payload: %v", err)}
	}

	campaigns = make([]pricing.Campaign, 0, len(items))
	for i, item := range items {
		var r CampaignRecord
		if err := json.Unmarshal(item, &r); err != nil {
			warnings = append(warnings, fmt.Sprintf("campaign #%d: %v", i, err))
			continue
		}
		c, ok := NormalizeCampaign(r)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("campaign %q: unknown discount type %q", r.ID, r.DiscountType))
			continue
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, warnings
}

// EvaluateRequest is the payload of an ad-hoc pricing evaluation: one product
// and the campaigns to consider, both in wire shape.
type EvaluateRequest struct {
	Product   ProductRecord   `json:"product"`
	Campaigns json.RawMessage `json:"campaigns"`
}

// Decode normalizes the request. Campaign problems are reported, not fatal.
func (r EvaluateRequest) Decode() (pricing.Product, []pricing.Campaign, []string) {
	campaigns, warnings := DecodeCampaigns(r.Campaigns)
	return NormalizeProduct(r.Product), campaigns, warnings
}
