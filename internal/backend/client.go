package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourusername/shopfront/internal/metrics"
	"github.com/yourusername/shopfront/pkg/catalog"
	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/pricing"
)

// maxBodyBytes caps upstream response bodies.
const maxBodyBytes = 8 << 20

// Resource names used in metrics and errors.
const (
	ResourceProducts  = "products"
	ResourceProduct   = "product"
	ResourceCampaigns = "campaigns"
)

// Options configures a Client.
//
// Options 配置Client。
type Options struct {
	BaseURL       string
	ProductsPath  string
	CampaignsPath string
	Timeout       time.Duration

	// BreakerFailures consecutive failures open the circuit for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	// ServiceToken is sent when the caller has no token of its own.
	ServiceToken string

	// Transport defaults to http.DefaultTransport; it is always wrapped with
	// OpenTelemetry instrumentation.
	Transport http.RoundTripper

	Metrics *metrics.Metrics
}

// Client talks to the storefront backend.
//
// Client 与店面后端通信。
type Client struct {
	baseURL       string
	productsPath  string
	campaignsPath string
	serviceToken  string

	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Client.
//
// New 创建一个Client。
func New(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.ProductsPath == "" {
		opts.ProductsPath = "/products"
	}
	if opts.CampaignsPath == "" {
		opts.CampaignsPath = "/campaigns"
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		productsPath:  opts.ProductsPath,
		campaignsPath: opts.CampaignsPath,
		serviceToken:  opts.ServiceToken,
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   opts.Timeout,
			// Redirects are reported as a status, never followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "storefront-backend",
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || shoperrors.IsUnauthorized(err) || shoperrors.IsNotFound(err)
			},
		}),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Products fetches and normalizes the product list.
//
// Products 获取并规范化商品列表。
func (c *Client) Products(ctx context.Context, cred Credentials) ([]pricing.Product, error) {
	body, err := c.get(ctx, cred, ResourceProducts, c.productsPath)
	if err != nil {
		return nil, err
	}
	products, err := catalog.DecodeProducts(body)
	if err != nil {
		return nil, malformed(ResourceProducts, err)
	}
	return products, nil
}

// Product fetches one product.
func (c *Client) Product(ctx context.Context, cred Credentials, id pricing.ProductID) (pricing.Product, error) {
	if id == "" {
		return pricing.Product{}, fmt.Errorf("%w: empty product id", shoperrors.ErrInvalidInput)
	}
	body, err := c.get(ctx, cred, ResourceProduct, c.productsPath+"/"+url.PathEscape(string(id)))
	if err != nil {
		return pricing.Product{}, err
	}
	p, err := catalog.DecodeProduct(body)
	if err != nil {
		return pricing.Product{}, malformed(ResourceProduct, err)
	}
	return p, nil
}

// malformed reports an unreadable payload as a backend fault. The decode
// detail is kept in the message only, so it never maps to a client error.
func malformed(resource string, err error) error {
	return fmt.Errorf("%w: %s: malformed payload: %v", shoperrors.ErrUpstream, resource, err)
}

// Campaigns fetches the campaign list. Transport and status failures are
// returned; malformed payloads are not errors and are described in warnings.
//
// Campaigns 获取活动列表。传输和状态错误会返回；格式错误的负载不算错误，在warnings中说明。
func (c *Client) Campaigns(ctx context.Context, cred Credentials) ([]pricing.Campaign, []string, error) {
	body, err := c.get(ctx, cred, ResourceCampaigns, c.campaignsPath)
	if err != nil {
		return nil, nil, err
	}
	campaigns, warnings := catalog.DecodeCampaigns(body)
	return campaigns, warnings, nil
}

func (c *Client) get(ctx context.Context, cred Credentials, resource, path string) ([]byte, error) {
	if cred.IsAnonymous() && c.serviceToken != "" {
		cred = CredentialsFromToken(c.serviceToken)
	}
	if cred.Expired(c.now()) {
		c.metrics.RecordUpstream(resource, metrics.OutcomeUnauthorized, 0)
		return nil, fmt.Errorf("%w: credential expired at %s", shoperrors.ErrUnauthorized, cred.ExpiresAt.Format(time.RFC3339))
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, cred, c.baseURL+path)
	})
	c.metrics.RecordUpstream(resource, outcome(err), time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", shoperrors.ErrUpstream, resource, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resource, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, cred Credentials, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", shoperrors.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if !cred.IsAnonymous() {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shoperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", shoperrors.ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: backend returned %d", shoperrors.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: backend returned 404", shoperrors.ErrNotFound)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: backend returned %d", shoperrors.ErrUpstream, resp.StatusCode)
	}
	return body, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.OutcomeRejected
	case shoperrors.IsUnauthorized(err):
		return metrics.OutcomeUnauthorized
	case shoperrors.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
