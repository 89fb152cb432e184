// Package storefront implements the pricing operations the storefront UI
// calls. It sits between the HTTP handlers and the backend client, caches
// catalog snapshots, and prices them with the configured pricer.
//
// Package storefront 实现店面UI调用的定价操作。
// 它位于HTTP处理程序和后端客户端之间，缓存目录快照，并用配置的定价器定价。
package storefront

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yourusername/shopfront/configs"
	"github.com/yourusername/shopfront/internal/backend"
	"github.com/yourusername/shopfront/internal/metrics"
	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/codec"
	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/loader"
	"github.com/yourusername/shopfront/pkg/logx"
	"github.com/yourusername/shopfront/pkg/pricing"
)

const (
	keyProducts  = "products"
	keyProduct   = "product:"
	keyCampaigns = "campaigns"
)

// Upstream is the part of the backend client the service depends on.
//
// Upstream 是服务依赖的后端客户端部分。
type Upstream interface {
	Products(ctx context.Context, cred backend.Credentials) ([]pricing.Product, error)
	Product(ctx context.Context, cred backend.Credentials, id pricing.ProductID) (pricing.Product, error)
	Campaigns(ctx context.Context, cred backend.Credentials) ([]pricing.Campaign, []string, error)
}

// Options configures a Service.
type Options struct {
	Upstream Upstream // Backend client / 后端客户端

	// Cache holds catalog snapshots; nil disables caching.
	// Cache 保存目录快照；nil表示禁用缓存。
	Cache    cache.ICache
	Codec    codec.Codec
	CacheTTL time.Duration

	// ScopeByToken keys cached snapshots by credential fingerprint.
	// ScopeByToken 按凭证指纹区分缓存的快照。
	ScopeByToken bool

	// ServeStale returns the last good snapshot when the backend is down.
	// ServeStale 在后端不可用时返回最后一次成功的快照。
	ServeStale bool

	// LoadTimeout bounds a shared backend load; zero uses the loader default.
	LoadTimeout time.Duration

	Pricing configs.PricingConfig
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type settings struct {
	pricer        pricing.Pricer
	enforceWindow bool
}

// Service handles storefront pricing with cached catalog snapshots.
// Credentials are always passed explicitly; the service never stores them.
//
// Service 使用缓存的目录快照处理店面定价。凭证总是显式传递，服务从不保存凭证。
type Service struct {
	upstream Upstream
	cache    cache.ICache
	scoped   bool
	metrics  *metrics.Metrics
	now      func() time.Time
	settings atomic.Pointer[settings]

	products  loader.Loader[[]pricing.Product]
	product   loader.Loader[pricing.Product]
	campaigns loader.Loader[[]pricing.Campaign]

	// campaignsOrNone degrades a campaign outage to no campaigns.
	campaignsOrNone loader.Loader[[]pricing.Campaign]
	stale           []interface{ Forget() }
}

// New creates a storefront service.
//
// Parameters:
//   - opts: upstream client, cache and pricing settings
//
// Returns:
//   - *Service: a ready service
//   - error: if the pricing settings are invalid or no upstream is given
//
// New 创建店面服务。
//
// 参数:
//   - opts: 上游客户端、缓存和定价设置
//
// 返回:
//   - *Service: 可用的服务
//   - error: 定价设置无效或未提供上游时返回错误
func New(opts Options) (*Service, error) {
	if opts.Upstream == nil {
		return nil, fmt.Errorf("storefront: upstream is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		upstream: opts.Upstream,
		cache:    opts.Cache,
		scoped:   opts.ScopeByToken,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if err := s.ApplySettings(opts.Pricing); err != nil {
		return nil, err
	}

	s.products = build(s, opts, func(ctx context.Context, _ string) ([]pricing.Product, error) {
		return s.upstream.Products(ctx, requestFrom(ctx).cred)
	})
	s.product = build(s, opts, func(ctx context.Context, _ string) (pricing.Product, error) {
		req := requestFrom(ctx)
		return s.upstream.Product(ctx, req.cred, req.id)
	})
	s.campaigns = build(s, opts, func(ctx context.Context, _ string) ([]pricing.Campaign, error) {
		campaigns, warnings, err := s.upstream.Campaigns(ctx, requestFrom(ctx).cred)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			logx.Warn().Str("warning", w).Msg("campaign dropped")
		}
		s.metrics.RecordDroppedCampaigns(len(warnings))
		return campaigns, nil
	})

	orNone := loader.NewFallbackLoader(s.campaigns, loader.Static([]pricing.Campaign{}))
	orNone.ShouldFallback = func(err error) bool { return !shoperrors.IsUnauthorized(err) }
	orNone.OnFallback = func(key string, err error) {
		logx.Warn().Str("key", key).Err(err).Msg("campaigns unavailable, pricing at base price")
	}
	s.campaignsOrNone = orNone
	return s, nil
}

// build stacks the cache-aside and stale layers on top of fn.
func build[T any](s *Service, opts Options, fn func(ctx context.Context, key string) (T, error)) loader.Loader[T] {
	var l loader.Loader[T] = loader.NewFunctionLoader(fn)

	if opts.Cache != nil {
		cached := loader.NewCachedLoader(l, opts.Cache, opts.Codec, opts.CacheTTL)
		cached.LoadTimeout = opts.LoadTimeout
		cached.OnCacheError = func(key string, err error) {
			logx.Warn().Str("key", key).Err(err).Msg("catalog cache error")
			s.metrics.RecordCacheError()
		}
		l = cached
	}

	if opts.ServeStale {
		stale := loader.NewStaleLoader(l, shoperrors.IsUpstream)
		stale.OnStale = func(key string, err error) {
			logx.Warn().Str("key", key).Err(err).Msg("backend unavailable, serving stale snapshot")
			s.metrics.RecordStaleServed()
		}
		s.stale = append(s.stale, stale)
		l = stale
	}
	return l
}

// request carries the caller's credential to the loaders.
type request struct {
	cred backend.Credentials
	id   pricing.ProductID
}

type requestKey struct{}

func withRequest(ctx context.Context, req request) context.Context {
	return context.WithValue(ctx, requestKey{}, req)
}

func requestFrom(ctx context.Context) request {
	req, _ := ctx.Value(requestKey{}).(request)
	return req
}

// ApplySettings swaps the pricing settings. It is safe to call while
// requests are in flight; each request prices with one consistent snapshot.
//
// ApplySettings 替换定价设置。可在请求进行中调用，每个请求使用一致的快照定价。
func (s *Service) ApplySettings(cfg configs.PricingConfig) error {
	resolution, err := pricing.ParseResolution(cfg.Resolution)
	if err != nil {
		return fmt.Errorf("%w: %v", shoperrors.ErrInvalidInput, err)
	}
	s.settings.Store(&settings{
		pricer:        pricing.NewPricer(resolution, cfg.CurrencySymbol),
		enforceWindow: cfg.EnforceWindow,
	})
	return nil
}

func (s *Service) current() *settings {
	return s.settings.Load()
}

func (s *Service) authorize(cred backend.Credentials) error {
	if cred.Expired(s.now()) {
		return fmt.Errorf("%w: credential expired", shoperrors.ErrUnauthorized)
	}
	return nil
}

func (s *Service) key(cred backend.Credentials, name string) string {
	if !s.scoped {
		return name
	}
	return "cred:" + cred.Fingerprint() + ":" + name
}

// ListProducts returns a filtered page of priced products.
//
// ListProducts 返回经过过滤和分页的已定价商品。
func (s *Service) ListProducts(ctx context.Context, cred backend.Credentials, filter ProductFilter) (ProductList, error) {
	if err := s.authorize(cred); err != nil {
		return ProductList{}, err
	}
	ctx = withRequest(ctx, request{cred: cred})

	products, _, err := s.products.Load(ctx, s.key(cred, keyProducts))
	if err != nil {
		return ProductList{}, err
	}
	active, err := s.pricingCampaigns(ctx, cred)
	if err != nil {
		return ProductList{}, err
	}

	st := s.current()
	filter = filter.normalized()
	priced := make([]PricedProduct, 0, len(products))
	for _, p := range products {
		if !filter.matchesName(p) {
			continue
		}
		info := st.pricer.Info(p, active)
		s.metrics.RecordEvaluation(info.HasDiscount)
		if !filter.matchesPrice(info) {
			continue
		}
		priced = append(priced, PricedProduct{Product: p, Pricing: info})
	}

	return ProductList{
		Products: page(priced, filter),
		Total:    len(priced),
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetProduct returns one priced product.
//
// GetProduct 返回单个已定价商品。
func (s *Service) GetProduct(ctx context.Context, cred backend.Credentials, id pricing.ProductID) (PricedProduct, error) {
	if id == "" {
		return PricedProduct{}, fmt.Errorf("%w: empty product id", shoperrors.ErrInvalidInput)
	}
	if err := s.authorize(cred); err != nil {
		return PricedProduct{}, err
	}
	ctx = withRequest(ctx, request{cred: cred, id: id})

	p, _, err := s.product.Load(ctx, s.key(cred, keyProduct+string(id)))
	if err != nil {
		return PricedProduct{}, err
	}
	active, err := s.pricingCampaigns(ctx, cred)
	if err != nil {
		return PricedProduct{}, err
	}

	info := s.current().pricer.Info(p, active)
	s.metrics.RecordEvaluation(info.HasDiscount)
	return PricedProduct{Product: p, Pricing: info}, nil
}

// ActiveCampaigns returns the campaigns that currently apply, in backend
// order. Unlike the pricing paths it reports backend failures.
//
// ActiveCampaigns 按后端顺序返回当前适用的活动。与定价路径不同，它会报告后端故障。
func (s *Service) ActiveCampaigns(ctx context.Context, cred backend.Credentials) ([]pricing.Campaign, error) {
	if err := s.authorize(cred); err != nil {
		return nil, err
	}
	return s.activeCampaigns(withRequest(ctx, request{cred: cred}), cred)
}

func (s *Service) activeCampaigns(ctx context.Context, cred backend.Credentials) ([]pricing.Campaign, error) {
	campaigns, _, err := s.campaigns.Load(ctx, s.key(cred, keyCampaigns))
	if err != nil {
		return nil, err
	}
	return s.filterActive(campaigns), nil
}

// pricingCampaigns is activeCampaigns for pricing: a campaign outage prices
// at base price instead of failing, but a rejected credential still fails.
func (s *Service) pricingCampaigns(ctx context.Context, cred backend.Credentials) ([]pricing.Campaign, error) {
	campaigns, _, err := s.campaignsOrNone.Load(ctx, s.key(cred, keyCampaigns))
	if err != nil {
		return nil, err
	}
	return s.filterActive(campaigns), nil
}

func (s *Service) filterActive(campaigns []pricing.Campaign) []pricing.Campaign {
	active := pricing.ActiveCampaigns(campaigns)
	if s.current().enforceWindow {
		active = pricing.WithinWindow(active, s.now())
	}
	return active
}

// Quote prices a cart against the current catalog.
//
// Quote 根据当前目录为购物车报价。
func (s *Service) Quote(ctx context.Context, cred backend.Credentials, lines []pricing.Line) (pricing.CartQuote, error) {
	if len(lines) > maxQuoteLines {
		return pricing.CartQuote{}, fmt.Errorf("%w: at most %d cart lines", shoperrors.ErrInvalidInput, maxQuoteLines)
	}
	if err := s.authorize(cred); err != nil {
		return pricing.CartQuote{}, err
	}
	ctx = withRequest(ctx, request{cred: cred})

	products, _, err := s.products.Load(ctx, s.key(cred, keyProducts))
	if err != nil {
		return pricing.CartQuote{}, err
	}
	active, err := s.pricingCampaigns(ctx, cred)
	if err != nil {
		return pricing.CartQuote{}, err
	}

	byID := make(map[pricing.ProductID]pricing.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	quote := s.current().pricer.Quote(lines, byID, active)
	s.metrics.RecordQuote()
	return quote, nil
}

// Price evaluates caller supplied data without contacting the backend.
// Inactive campaigns are ignored.
//
// Price 在不访问后端的情况下计算调用方提供的数据。非活动的活动被忽略。
func (s *Service) Price(p pricing.Product, campaigns []pricing.Campaign) PricedProduct {
	info := s.current().pricer.Info(p, s.filterActive(campaigns))
	s.metrics.RecordEvaluation(info.HasDiscount)
	return PricedProduct{Product: p, Pricing: info}
}

// Invalidate drops every cached catalog snapshot. Stale copies are kept as
// an outage fallback.
//
// Invalidate 删除所有缓存的目录快照。旧副本保留为故障时的后备。
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	logx.Info().Msg("catalog cache invalidated")
	return nil
}

// Forget drops the stale copies kept for outages.
func (s *Service) Forget() {
	for _, st := range s.stale {
		st.Forget()
	}
}

// CacheStats returns the catalog cache statistics, or nil without a cache.
func (s *Service) CacheStats(ctx context.Context) (*cache.Stats, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.Stats(ctx)
}
