package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/shopfront/configs"
	"github.com/yourusername/shopfront/internal/backend"
	"github.com/yourusername/shopfront/internal/metrics"
	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/codec"
	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/pricing"
)

type fakeUpstream struct {
	mu           sync.Mutex
	products     []pricing.Product
	campaigns    []pricing.Campaign
	warnings     []string
	productErr   error
	campaignErr  error
	productCalls atomic.Int32
	campCalls    atomic.Int32
	tokens       []string
}

func (f *fakeUpstream) Products(ctx context.Context, cred backend.Credentials) ([]pricing.Product, error) {
	f.productCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, cred.Token)
	if f.productErr != nil {
		return nil, f.productErr
	}
	return append([]pricing.Product(nil), f.products...), nil
}

func (f *fakeUpstream) Product(ctx context.Context, cred backend.Credentials, id pricing.ProductID) (pricing.Product, error) {
	f.productCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productErr != nil {
		return pricing.Product{}, f.productErr
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return pricing.Product{}, fmt.Errorf("product %s: %w", id, shoperrors.ErrNotFound)
}

func (f *fakeUpstream) Campaigns(ctx context.Context, cred backend.Credentials) ([]pricing.Campaign, []string, error) {
	f.campCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.campaignErr != nil {
		return nil, nil, f.campaignErr
	}
	return append([]pricing.Campaign(nil), f.campaigns...), f.warnings, nil
}

func (f *fakeUpstream) fail(productErr, campaignErr error) {
	f.mu.Lock()
	f.productErr, f.campaignErr = productErr, campaignErr
	f.mu.Unlock()
}

func newCatalog() *fakeUpstream {
	return &fakeUpstream{
		products: []pricing.Product{
			{ID: "1", Name: "Desk Lamp", Price: 1500},
			{ID: "2", Name: "Oak Chair", Price: 800},
			{ID: "3", Name: "Floor Lamp", Price: 300, CampaignID: "flash"},
			{ID: "4", Name: "Rug", Price: 50},
		},
		campaigns: []pricing.Campaign{
			{ID: "spring", ProductIDs: pricing.NewProductSet("1", "2"), Kind: pricing.Percent, Value: 20, Active: true},
			{ID: "flash", Kind: pricing.Fixed, Value: 100, Active: true},
			{ID: "retired", ProductIDs: pricing.NewProductSet("4"), Kind: pricing.Percent, Value: 50, Active: false},
		},
	}
}

func newTestService(t *testing.T, up Upstream, mutate func(*Options)) (*Service, cache.ICache) {
	t.Helper()
	c, err := cache.New(cache.NewDefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	opts := Options{
		Upstream:   up,
		Cache:      c,
		Codec:      codec.DefaultCodec(),
		CacheTTL:   time.Minute,
		ServeStale: true,
		Pricing:    configs.PricingConfig{Resolution: "list_order", CurrencySymbol: "$"},
		Metrics:    metrics.New(nil),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s, c
}

func ids(products []PricedProduct) []pricing.ProductID {
	out := make([]pricing.ProductID, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestListProductsPricesCatalog(t *testing.T) {
	s, _ := newTestService(t, newCatalog(), nil)

	list, err := s.ListProducts(context.Background(), backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, list.Products, 4)
	assert.Equal(t, 4, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, defaultPageSize, list.PageSize)

	lamp := list.Products[0].Pricing
	assert.Equal(t, 1200.0, lamp.FinalPrice)
	assert.Equal(t, 300.0, lamp.Savings)
	assert.Equal(t, "-20% OFF", lamp.BadgeText)
	assert.Equal(t, "spring", lamp.CampaignID)

	floor := list.Products[2].Pricing
	assert.Equal(t, 200.0, floor.FinalPrice)
	assert.Equal(t, "-$100 OFF", floor.BadgeText)

	rug := list.Products[3].Pricing
	assert.False(t, rug.HasDiscount, "inactive campaign must not apply")
	assert.Equal(t, 50.0, rug.FinalPrice)
}

func TestListProductsFilters(t *testing.T) {
	s, _ := newTestService(t, newCatalog(), nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ProductFilter
		want   []pricing.ProductID
		total  int
	}{
		{"query", ProductFilter{Query: " LAMP "}, []pricing.ProductID{"1", "3"}, 2},
		{"discounted", ProductFilter{Discounted: true}, []pricing.ProductID{"1", "2", "3"}, 3},
		{"final price bounds", ProductFilter{MinPrice: 100, MaxPrice: 700}, []pricing.ProductID{"2", "3"}, 2},
		{"second page", ProductFilter{Page: 2, PageSize: 3}, []pricing.ProductID{"4"}, 4},
		{"past the end", ProductFilter{Page: 9, PageSize: 3}, []pricing.ProductID{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListProducts(ctx, backend.Anonymous, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(list.Products))
			assert.Equal(t, tt.total, list.Total)
		})
	}
}

func TestProductFilterNormalized(t *testing.T) {
	f := ProductFilter{Page: -3, PageSize: 10_000}.normalized()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, maxPageSize, f.PageSize)
}

func TestCatalogIsCachedUntilInvalidated(t *testing.T) {
	up := newCatalog()
	s, _ := newTestService(t, up, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, up.productCalls.Load())
	assert.EqualValues(t, 1, up.campCalls.Load())

	require.NoError(t, s.Invalidate(ctx))
	_, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, up.productCalls.Load())

	stats, err := s.CacheStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.EntryCount)
}

func TestCacheScopedByToken(t *testing.T) {
	ctx := context.Background()
	alice := backend.CredentialsFromToken("alice")
	bob := backend.CredentialsFromToken("Bearer bob")

	t.Run("shared catalog", func(t *testing.T) {
		up := newCatalog()
		s, _ := newTestService(t, up, nil)
		_, _ = s.ListProducts(ctx, alice, ProductFilter{})
		_, _ = s.ListProducts(ctx, bob, ProductFilter{})
		assert.EqualValues(t, 1, up.productCalls.Load())
	})

	t.Run("scoped catalog", func(t *testing.T) {
		up := newCatalog()
		s, _ := newTestService(t, up, func(o *Options) { o.ScopeByToken = true })
		_, _ = s.ListProducts(ctx, alice, ProductFilter{})
		_, _ = s.ListProducts(ctx, bob, ProductFilter{})
		_, _ = s.ListProducts(ctx, alice, ProductFilter{})
		assert.EqualValues(t, 2, up.productCalls.Load())
		assert.Equal(t, []string{"alice", "bob"}, up.tokens)
	})
}

func TestExpiredCredentialIsRejectedBeforeUpstream(t *testing.T) {
	up := newCatalog()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestService(t, up, func(o *Options) { o.Now = func() time.Time { return now } })
	expired := backend.Credentials{Token: "t", ExpiresAt: now.Add(-time.Minute)}
	ctx := context.Background()

	_, err := s.ListProducts(ctx, expired, ProductFilter{})
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)
	_, err = s.GetProduct(ctx, expired, "1")
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)
	_, err = s.ActiveCampaigns(ctx, expired)
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)
	_, err = s.Quote(ctx, expired, []pricing.Line{{ProductID: "1", Quantity: 1}})
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)

	assert.Zero(t, up.productCalls.Load())
	assert.Zero(t, up.campCalls.Load())
}

func TestCampaignOutagePricesAtBase(t *testing.T) {
	up := newCatalog()
	up.fail(nil, fmt.Errorf("campaigns: %w", shoperrors.ErrUpstream))
	s, _ := newTestService(t, up, func(o *Options) { o.ServeStale = false })
	ctx := context.Background()

	list, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	for _, p := range list.Products {
		assert.False(t, p.Pricing.HasDiscount)
		assert.Equal(t, p.Price, p.Pricing.FinalPrice)
	}

	_, err = s.ActiveCampaigns(ctx, backend.Anonymous)
	assert.ErrorIs(t, err, shoperrors.ErrUpstream, "the campaigns endpoint reports the outage")
}

func TestCampaignRejectionIsNotHidden(t *testing.T) {
	up := newCatalog()
	up.fail(nil, fmt.Errorf("campaigns: %w", shoperrors.ErrUnauthorized))
	s, _ := newTestService(t, up, nil)

	_, err := s.ListProducts(context.Background(), backend.CredentialsFromToken("x"), ProductFilter{})
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)
}

func TestStaleSnapshotServedDuringOutage(t *testing.T) {
	up := newCatalog()
	m := metrics.New(nil)
	s, _ := newTestService(t, up, func(o *Options) { o.Metrics = m })
	ctx := context.Background()

	_, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(ctx))

	up.fail(fmt.Errorf("products: %w", shoperrors.ErrUpstream), fmt.Errorf("campaigns: %w", shoperrors.ErrUpstream))
	list, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Products, 4)
	assert.True(t, list.Products[0].Pricing.HasDiscount, "stale campaigns still apply")
	assert.EqualValues(t, 2, m.GetSnapshot().StaleServed)

	s.Forget()
	_, err = s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	assert.ErrorIs(t, err, shoperrors.ErrUpstream)
}

func TestStaleSnapshotNotServedForRejectedCredential(t *testing.T) {
	up := newCatalog()
	s, _ := newTestService(t, up, nil)
	ctx := context.Background()

	_, err := s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	require.NoError(t, s.Invalidate(ctx))

	up.fail(fmt.Errorf("products: %w", shoperrors.ErrUnauthorized), nil)
	_, err = s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)
}

func TestGetProduct(t *testing.T) {
	s, _ := newTestService(t, newCatalog(), nil)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, backend.Anonymous, "3")
	require.NoError(t, err)
	assert.Equal(t, "Floor Lamp", p.Name)
	assert.Equal(t, 200.0, p.Pricing.FinalPrice)

	_, err = s.GetProduct(ctx, backend.Anonymous, "404")
	assert.True(t, errors.Is(err, shoperrors.ErrNotFound))

	_, err = s.GetProduct(ctx, backend.Anonymous, "")
	assert.ErrorIs(t, err, shoperrors.ErrInvalidInput)
}

func TestActiveCampaignsWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)
	up := newCatalog()
	up.campaigns = append(up.campaigns, pricing.Campaign{ID: "old", Kind: pricing.Percent, Value: 5, Active: true, EndsAt: &ended})

	s, _ := newTestService(t, up, func(o *Options) { o.Now = func() time.Time { return now } })
	ctx := context.Background()

	active, err := s.ActiveCampaigns(ctx, backend.Anonymous)
	require.NoError(t, err)
	assert.Len(t, active, 3, "the active flag is trusted by default")

	require.NoError(t, s.ApplySettings(configs.PricingConfig{EnforceWindow: true}))
	active, err = s.ActiveCampaigns(ctx, backend.Anonymous)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "spring", active[0].ID)
	assert.Equal(t, "flash", active[1].ID)
}

func TestDroppedCampaignsAreCounted(t *testing.T) {
	up := newCatalog()
	up.warnings = []string{"campaign \"x\": unknown discount type \"bogo\""}
	m := metrics.New(nil)
	s, _ := newTestService(t, up, func(o *Options) { o.Metrics = m })

	_, err := s.ActiveCampaigns(context.Background(), backend.Anonymous)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.GetSnapshot().DroppedCampaigns)
}

func TestQuote(t *testing.T) {
	s, _ := newTestService(t, newCatalog(), nil)
	ctx := context.Background()

	q, err := s.Quote(ctx, backend.Anonymous, []pricing.Line{
		{ProductID: "1", Quantity: 2},
		{ProductID: "4", Quantity: 1},
		{ProductID: "nope", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 3050.0, q.Subtotal)
	assert.Equal(t, 2450.0, q.Total)
	assert.Equal(t, 600.0, q.Savings)
	assert.Equal(t, []pricing.ProductID{"nope"}, q.Missing)

	_, err = s.Quote(ctx, backend.Anonymous, make([]pricing.Line, maxQuoteLines+1))
	assert.ErrorIs(t, err, shoperrors.ErrInvalidInput)
}

func TestPriceIsPure(t *testing.T) {
	up := newCatalog()
	s, _ := newTestService(t, up, nil)

	got := s.Price(pricing.Product{ID: "7", Price: 1000, CampaignID: "B"}, []pricing.Campaign{
		{ID: "A", ProductIDs: pricing.NewProductSet("7"), Kind: pricing.Percent, Value: 10, Active: false},
		{ID: "B", Kind: pricing.Percent, Value: 25, Active: true},
	})
	assert.Equal(t, 750.0, got.Pricing.FinalPrice)
	assert.Equal(t, "B", got.Pricing.CampaignID)
	assert.Zero(t, up.productCalls.Load())
	assert.Zero(t, up.campCalls.Load())
}

func TestApplySettings(t *testing.T) {
	s, _ := newTestService(t, newCatalog(), nil)
	p := pricing.Product{ID: "1", Price: 100, CampaignID: "embedded"}
	campaigns := []pricing.Campaign{
		{ID: "listed", ProductIDs: pricing.NewProductSet("1"), Kind: pricing.Fixed, Value: 10, Active: true},
		{ID: "embedded", Kind: pricing.Fixed, Value: 30, Active: true},
	}

	assert.Equal(t, 90.0, s.Price(p, campaigns).Pricing.FinalPrice)

	require.NoError(t, s.ApplySettings(configs.PricingConfig{Resolution: "prefer_embedded", CurrencySymbol: "€"}))
	got := s.Price(p, campaigns).Pricing
	assert.Equal(t, 70.0, got.FinalPrice)
	assert.Equal(t, "-€30 OFF", got.BadgeText)

	err := s.ApplySettings(configs.PricingConfig{Resolution: "cheapest"})
	assert.ErrorIs(t, err, shoperrors.ErrInvalidInput)
	assert.Equal(t, 70.0, s.Price(p, campaigns).Pricing.FinalPrice, "a rejected update keeps the previous settings")
}

func TestServiceWithoutCache(t *testing.T) {
	up := newCatalog()
	s, err := New(Options{Upstream: up})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	_, err = s.ListProducts(ctx, backend.Anonymous, ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, up.productCalls.Load())

	require.NoError(t, s.Invalidate(ctx))
	stats, err := s.CacheStats(ctx)
	assert.NoError(t, err)
	assert.Nil(t, stats)
}

func TestNewRequiresUpstream(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
