package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/checkout"
	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/port/outbound"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
	"github.com/greenpack/storefront/internal/utils/metrics"
)

// App holds the wired checkout engine.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Checkout *Checkout

	cleanupFuncs []func()
}

// New wires the application by hand, in the same order as the injector
// in wire.go.
func New(cfg *config.Config) (*App, error) {
	zapLog, err := ProvideZapLogger(cfg)
	if err != nil {
		return nil, wrapProvider("logger", err)
	}
	app := &App{
		Config:       cfg,
		Logger:       zapLog,
		Metrics:      ProvideMetrics(),
		cleanupFuncs: make([]func(), 0),
	}

	db, closeDB, err := ProvideDatabase(cfg)
	if err != nil {
		return nil, wrapProvider("database", err)
	}
	app.cleanupFuncs = append(app.cleanupFuncs, closeDB)

	redisClient, closeRedis := ProvideRedisClient(cfg, zapLog)
	app.cleanupFuncs = append(app.cleanupFuncs, closeRedis)

	deps := checkout.Deps{Recorder: app.Metrics, Logger: zapLog}
	if deps.Catalog, err = ProvideCatalog(db, zapLog); err != nil {
		app.Stop()
		return nil, wrapProvider("catalog", err)
	}
	client := ProvideHTTPClient(cfg)
	if deps.ShippingRates, err = ProvideShippingRates(cfg, client, zapLog); err != nil {
		app.Stop()
		return nil, wrapProvider("shipping rates", err)
	}
	if deps.Discounts, err = ProvideDiscounts(cfg, client, zapLog); err != nil {
		app.Stop()
		return nil, wrapProvider("discounts", err)
	}
	if deps.Placement, err = ProvidePlacement(cfg, zapLog); err != nil {
		app.Stop()
		return nil, wrapProvider("order placement", err)
	}

	settings, err := ProvideSettings(cfg)
	if err != nil {
		app.Stop()
		return nil, wrapProvider("settings", err)
	}
	app.Checkout, err = NewCheckout(cfg, deps, settings, ProvideCartStore(cfg, redisClient), ProvideAttemptLimiter(redisClient), app.Metrics)
	if err != nil {
		app.Stop()
		return nil, wrapProvider("checkout", err)
	}
	return app, nil
}

// Stop releases connections in reverse order of acquisition.
func (a *App) Stop() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
	_ = a.Logger.Sync()
}

// Checkout opens checkout sessions whose carts outlive a single request.
type Checkout struct {
	deps     checkout.Deps
	settings checkout.Settings
	cartOpts []cart.Option
	store    outbound.CartStorePort
	limiter  outbound.AttemptLimiterPort
	attempts int
	window   time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCheckout creates a session factory. A nil store keeps carts in
// memory only; a nil limiter leaves discount checks unthrottled.
func NewCheckout(
	cfg *config.Config,
	deps checkout.Deps,
	settings checkout.Settings,
	store outbound.CartStorePort,
	limiter outbound.AttemptLimiterPort,
	m *metrics.Metrics,
) (*Checkout, error) {
	opts, err := cfg.Checkout.CartOptions()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkout{
		deps:     deps,
		settings: settings,
		cartOpts: opts,
		store:    store,
		limiter:  limiter,
		attempts: cfg.Checkout.DiscountAttempts,
		window:   cfg.Checkout.DiscountWindow,
		metrics:  m,
		logger:   logger.Named("checkout"),
	}, nil
}

// Catalog returns the catalog sessions read from.
func (c *Checkout) Catalog() outbound.CatalogPort {
	return c.deps.Catalog
}

// NewSessionID returns a fresh session id.
func (c *Checkout) NewSessionID() string {
	return uuid.NewString()
}

// Open starts a session, restoring the cart stored under sessionID. A
// stored cart that no longer satisfies the cart rules is discarded.
func (c *Checkout) Open(ctx context.Context, sessionID string) (*checkout.Session, error) {
	if sessionID == "" {
		return nil, apperrors.Validation("session_id", "session id is required")
	}

	crt := cart.New(c.cartOpts...)
	if c.store != nil {
		snapshot, err := c.store.Load(ctx, sessionID)
		switch {
		case errors.Is(err, outbound.ErrCacheMiss):
			c.recordLoad("miss")
		case err != nil:
			c.recordLoad("error")
			return nil, fmt.Errorf("load cart %s: %w", sessionID, err)
		default:
			if err := crt.Restore(*snapshot); err != nil {
				c.logger.Warn("discarding stored cart", zap.String("session_id", sessionID), zap.Error(err))
				c.recordLoad("error")
				break
			}
			if err := c.refreshPrices(ctx, sessionID, crt); err != nil {
				return nil, err
			}
			c.recordLoad("hit")
		}
	}

	deps := c.deps
	if c.limiter != nil && c.attempts > 0 && deps.Discounts != nil {
		deps.Discounts = &throttledDiscounts{
			next:    deps.Discounts,
			limiter: c.limiter,
			key:     "discount:" + sessionID,
			limit:   c.attempts,
			window:  c.window,
			logger:  c.logger,
		}
	}
	return checkout.NewSession(sessionID, crt, deps, c.settings), nil
}

// refreshPrices re-prices a restored cart against the current catalog and
// drops lines that no longer exist or whose box no longer fits its tier.
func (c *Checkout) refreshPrices(ctx context.Context, sessionID string, crt *cart.Cart) error {
	varieties := make(map[string]catalog.Variety)
	tiers := make(map[catalog.TierID]catalog.PlanTier)

	addVariety := func(id string) error {
		if _, ok := varieties[id]; ok {
			return nil
		}
		v, err := c.deps.Catalog.GetVariety(ctx, id)
		switch {
		case errors.Is(err, catalog.ErrVarietyNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("refresh cart %s: %w", sessionID, err)
		}
		varieties[id] = *v
		return nil
	}

	for _, item := range crt.Items() {
		sub := item.Subscription()
		if sub == nil {
			if err := addVariety(item.ProductID()); err != nil {
				return err
			}
			continue
		}
		if _, ok := tiers[sub.TierID]; !ok {
			tier, err := c.deps.Catalog.GetPlanTier(ctx, sub.TierID)
			switch {
			case errors.Is(err, catalog.ErrTierNotFound):
			case err != nil:
				return fmt.Errorf("refresh cart %s: %w", sessionID, err)
			default:
				tiers[sub.TierID] = *tier
			}
		}
		for _, sel := range sub.Selections {
			if err := addVariety(sel.VarietyID); err != nil {
				return err
			}
		}
	}

	if dropped := crt.Reprice(varieties, tiers); len(dropped) > 0 {
		c.logger.Info("dropped stale cart lines", zap.String("session_id", sessionID), zap.Strings("item_ids", dropped))
	}
	return nil
}

// Save stores the session's cart. An empty cart removes the stored one.
func (c *Checkout) Save(ctx context.Context, s *checkout.Session) error {
	if c.store == nil {
		return nil
	}
	snapshot := s.CartSnapshot()
	if len(snapshot.Items) == 0 {
		return c.store.Delete(ctx, s.ID())
	}
	if err := c.store.Save(ctx, s.ID(), snapshot); err != nil {
		return fmt.Errorf("save cart %s: %w", s.ID(), err)
	}
	return nil
}

func (c *Checkout) recordLoad(result string) {
	if c.metrics != nil {
		c.metrics.RecordCartLoad(result)
	}
}
