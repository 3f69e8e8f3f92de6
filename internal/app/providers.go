package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	// Domains
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/checkout"

	// Ports
	"github.com/greenpack/storefront/internal/port/outbound"

	// Outbound adapters
	"github.com/greenpack/storefront/internal/adapter/outbound/discountapi"
	"github.com/greenpack/storefront/internal/adapter/outbound/payment"
	"github.com/greenpack/storefront/internal/adapter/outbound/postgres"
	redisadapter "github.com/greenpack/storefront/internal/adapter/outbound/redis"
	"github.com/greenpack/storefront/internal/adapter/outbound/shippingrates"

	// Infrastructure
	"github.com/greenpack/storefront/internal/infra/cache"
	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/infra/database"
	"github.com/greenpack/storefront/internal/infra/httpclient"

	// Utils
	"github.com/greenpack/storefront/internal/utils/logger"
	"github.com/greenpack/storefront/internal/utils/metrics"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideZapLogger,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideHTTPClient,
	ProvideMetrics,
	wire.Bind(new(checkout.Recorder), new(*metrics.Metrics)),
)

// ProvideZapLogger creates the application logger.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "greenpack-checkout",
	})
}

// ProvideDatabase opens the catalog database. With no host configured the
// built-in catalog is used and no connection is made.
func ProvideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	if cfg.Database.Host == "" {
		return nil, func() {}, nil
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = database.Close(db) }, nil
}

// ProvideRedisClient connects to Redis. Carts are not persisted when Redis
// is unavailable.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (*goredis.Client, func()) {
	if cfg.Redis.Address == "" {
		return nil, func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		zapLog.Warn("Redis connection failed, continuing without cart persistence", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideMetrics creates a metrics instance on the default registry.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("greenpack", nil)
}

// ===== Catalog Providers =====

// CatalogSet provides the product catalog.
var CatalogSet = wire.NewSet(
	ProvideCatalog,
)

// ProvideCatalog returns the database catalog, migrating and seeding it with
// the built-in varieties and tiers on first use. A nil db yields the
// built-in catalog.
func ProvideCatalog(db *gorm.DB, zapLog *zap.Logger) (outbound.CatalogPort, error) {
	if db == nil {
		return catalog.Default(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}
	adapter := postgres.NewCatalogAdapter(db)
	varieties, err := adapter.ListVarieties(ctx)
	if err != nil {
		return nil, err
	}
	if len(varieties) == 0 {
		zapLog.Info("seeding empty catalog")
		if err := postgres.SeedCatalog(ctx, db, catalog.DefaultVarieties(), catalog.DefaultTiers()); err != nil {
			return nil, err
		}
	}
	return adapter, nil
}

var _ outbound.CatalogPort = (*catalog.StaticCatalog)(nil)

// ===== Collaborator Providers =====

// CollaboratorSet provides the remote services a checkout talks to.
var CollaboratorSet = wire.NewSet(
	ProvideShippingRates,
	ProvideDiscounts,
	ProvidePlacement,
	ProvideCartStore,
	ProvideAttemptLimiter,
)

// ProvideShippingRates creates the shipping rate client.
func ProvideShippingRates(cfg *config.Config, client *http.Client, zapLog *zap.Logger) (outbound.ShippingRatePort, error) {
	svc, err := httpclient.NewService("shipping-rates", cfg.ShippingRates, client, zapLog)
	if err != nil {
		return nil, err
	}
	return shippingrates.NewClient(svc, zapLog), nil
}

// ProvideDiscounts creates the discount validation client.
func ProvideDiscounts(cfg *config.Config, client *http.Client, zapLog *zap.Logger) (outbound.DiscountValidationPort, error) {
	svc, err := httpclient.NewService("discounts", cfg.Discounts, client, zapLog)
	if err != nil {
		return nil, err
	}
	return discountapi.NewClient(svc, zapLog), nil
}

// ErrNoPaymentProvider is returned when neither Stripe nor PayPal is configured.
var ErrNoPaymentProvider = errors.New("no payment provider configured")

// ProvidePlacement registers a provider for every configured payment method.
func ProvidePlacement(cfg *config.Config, zapLog *zap.Logger) (outbound.OrderPlacementPort, error) {
	var providers []outbound.PaymentProviderPort
	if cfg.Stripe.SecretKey != "" {
		providers = append(providers, payment.NewStripeProvider(cfg.Stripe, nil, zapLog))
	}
	if cfg.PayPal.ClientID != "" {
		client, err := payment.NewPayPalClient(cfg.PayPal)
		if err != nil {
			return nil, err
		}
		providers = append(providers, payment.NewPayPalProvider(client, cfg.PayPal, zapLog))
	}
	if len(providers) == 0 {
		return nil, ErrNoPaymentProvider
	}
	return payment.NewPlacement(zapLog, providers...), nil
}

// ProvideCartStore creates the Redis cart store, or nil without Redis.
func ProvideCartStore(cfg *config.Config, client *goredis.Client) outbound.CartStorePort {
	if client == nil {
		return nil
	}
	return redisadapter.NewCartStore(client, cfg.Checkout.CartTTL)
}

// ProvideAttemptLimiter creates the Redis discount attempt limiter, or nil
// without Redis.
func ProvideAttemptLimiter(client *goredis.Client) outbound.AttemptLimiterPort {
	if client == nil {
		return nil
	}
	return redisadapter.NewAttemptLimiter(client)
}

// ===== Checkout Providers =====

// CheckoutSet provides the checkout session factory.
var CheckoutSet = wire.NewSet(
	ProvideSettings,
	wire.Struct(new(checkout.Deps), "*"),
	NewCheckout,
)

// ProvideSettings builds session settings from configuration.
func ProvideSettings(cfg *config.Config) (checkout.Settings, error) {
	tax, err := cfg.Checkout.TaxRule()
	if err != nil {
		return checkout.Settings{}, err
	}
	policy, err := cfg.Checkout.Policy()
	if err != nil {
		return checkout.Settings{}, err
	}
	return checkout.Settings{Tax: tax, Policy: policy, Currency: cfg.Checkout.Currency}, nil
}

// AppSet is the complete provider set.
var AppSet = wire.NewSet(
	InfraSet,
	CatalogSet,
	CollaboratorSet,
	CheckoutSet,
)

func wrapProvider(name string, err error) error {
	return fmt.Errorf("init %s: %w", name, err)
}
