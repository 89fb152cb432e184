package mockbackend

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/shopfront/internal/backend"
	"github.com/yourusername/shopfront/internal/storefront"
	"github.com/yourusername/shopfront/pkg/cache"
	shoperrors "github.com/yourusername/shopfront/pkg/errors"
	"github.com/yourusername/shopfront/pkg/pricing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startBackend(t *testing.T, opts Options) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(NewHandler(DefaultFixture(), opts))
	t.Cleanup(srv.Close)
	return backend.New(backend.Options{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
}

func TestClientAgainstMockBackend(t *testing.T) {
	for _, envelope := range []bool{false, true} {
		client := startBackend(t, Options{Envelope: envelope})
		ctx := context.Background()

		products, err := client.Products(ctx, backend.Anonymous)
		require.NoError(t, err)
		require.Len(t, products, 5)
		assert.Equal(t, 800.0, products[1].Price)
		assert.Equal(t, "3", products[3].CampaignID)

		p, err := client.Product(ctx, backend.Anonymous, "5")
		require.NoError(t, err)
		assert.Equal(t, "Bookshelf", p.Name)

		_, err = client.Product(ctx, backend.Anonymous, "42")
		assert.ErrorIs(t, err, shoperrors.ErrNotFound)

		campaigns, warnings, err := client.Campaigns(ctx, backend.Anonymous)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, campaigns, 4)
		assert.True(t, campaigns[1].Covers("3"), "product objects are reduced to ids")
	}
}

func TestMockBackendRequiresToken(t *testing.T) {
	client := startBackend(t, Options{Token: "secret"})
	ctx := context.Background()

	_, err := client.Products(ctx, backend.Anonymous)
	assert.ErrorIs(t, err, shoperrors.ErrUnauthorized)

	products, err := client.Products(ctx, backend.CredentialsFromToken("Bearer secret"))
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestStorefrontEndToEnd(t *testing.T) {
	client := startBackend(t, Options{Envelope: true})
	c, err := cache.New(cache.NewDefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	svc, err := storefront.New(storefront.Options{Upstream: client, Cache: c})
	require.NoError(t, err)

	list, err := svc.ListProducts(context.Background(), backend.Anonymous, storefront.ProductFilter{})
	require.NoError(t, err)

	want := map[pricing.ProductID]float64{"1": 1200, "2": 640, "3": 200, "4": 25, "5": 1200}
	require.Len(t, list.Products, len(want))
	for _, p := range list.Products {
		assert.Equal(t, want[p.ID], p.Pricing.FinalPrice, "product %s", p.ID)
	}
	assert.False(t, list.Products[4].Pricing.HasDiscount, "retired campaign must not apply")
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	content := `
products:
  - {id: 7, name: Vase, price: 40, campaignId: 1}
campaigns:
  - {id: 1, discountType: percent, discountValue: 10, active: true}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f.Products, 1)
	assert.Equal(t, "7", recordID(f.Products[0]))
	require.Len(t, f.Campaigns, 1)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
