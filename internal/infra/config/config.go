package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/pricing"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GREENPACK"

// Config holds all application configuration.
type Config struct {
	Log           LogConfig        `mapstructure:"log"`
	Database      DatabaseConfig   `mapstructure:"database"`
	Redis         RedisConfig      `mapstructure:"redis"`
	HTTPClient    HTTPClientConfig `mapstructure:"http_client"`
	Checkout      CheckoutConfig   `mapstructure:"checkout"`
	ShippingRates ServiceConfig    `mapstructure:"shipping_rates"`
	Discounts     ServiceConfig    `mapstructure:"discounts"`
	Stripe        StripeConfig     `mapstructure:"stripe"`
	PayPal        PayPalConfig     `mapstructure:"paypal"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode,
	)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPClientConfig holds HTTP client configuration for connection pooling.
type HTTPClientConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

// CheckoutConfig holds the pricing rules and cart limits. Money amounts and
// rates are decimal strings.
type CheckoutConfig struct {
	Currency              string        `mapstructure:"currency"`
	TaxRate               string        `mapstructure:"tax_rate"`
	FreeShippingThreshold string        `mapstructure:"free_shipping_threshold"` // empty disables
	MinQuantity           int           `mapstructure:"min_quantity"`
	MaxQuantity           int           `mapstructure:"max_quantity"`
	AddPolicy             string        `mapstructure:"add_policy"` // append, merge
	CartTTL               time.Duration `mapstructure:"cart_ttl"`
	DiscountAttempts      int           `mapstructure:"discount_attempts"` // per session and window, 0 disables
	DiscountWindow        time.Duration `mapstructure:"discount_window"`
}

// TaxRule parses the configured tax rate.
func (c CheckoutConfig) TaxRule() (pricing.TaxRule, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return pricing.TaxRule{}, fmt.Errorf("checkout.tax_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return pricing.TaxRule{}, fmt.Errorf("checkout.tax_rate: %s out of range", rate)
	}
	return pricing.TaxRule{Rate: rate}, nil
}

// Policy parses the configured free shipping threshold.
func (c CheckoutConfig) Policy() (pricing.Policy, error) {
	raw := strings.TrimSpace(c.FreeShippingThreshold)
	if raw == "" {
		return pricing.Policy{}, nil
	}
	threshold, err := money.Parse(raw)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("checkout.free_shipping_threshold: %w", err)
	}
	if threshold.IsNegative() {
		return pricing.Policy{}, fmt.Errorf("checkout.free_shipping_threshold: %s is negative", threshold)
	}
	return pricing.Policy{FreeShippingThreshold: &threshold}, nil
}

// CartOptions returns the cart options for the configured limits and policy.
func (c CheckoutConfig) CartOptions() ([]cart.Option, error) {
	policy := cart.AddPolicy(strings.ToLower(strings.TrimSpace(c.AddPolicy)))
	if !policy.IsValid() {
		return nil, fmt.Errorf("checkout.add_policy: unknown policy %q", c.AddPolicy)
	}
	if c.MinQuantity < 1 || c.MaxQuantity < c.MinQuantity {
		return nil, fmt.Errorf("checkout: quantity limits %d..%d are invalid", c.MinQuantity, c.MaxQuantity)
	}
	return []cart.Option{
		cart.WithPolicy(policy),
		cart.WithLimits(cart.Limits{MinQuantity: c.MinQuantity, MaxQuantity: c.MaxQuantity}),
	}, nil
}

// ServiceConfig configures a remote JSON service guarded by a circuit breaker.
type ServiceConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// StripeConfig holds Stripe payment configuration.
type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// PayPalConfig holds PayPal payment configuration.
type PayPalConfig struct {
	ClientID  string `mapstructure:"client_id"`
	Secret    string `mapstructure:"secret"`
	IsProd    bool   `mapstructure:"is_prod"`
	ReturnURL string `mapstructure:"return_url"`
	CancelURL string `mapstructure:"cancel_url"`
}

// Load loads configuration from a .env file, a config file and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/greenpack")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets under short names.
	if password := os.Getenv("GREENPACK_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("GREENPACK_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("GREENPACK_STRIPE_SECRET_KEY"); key != "" {
		cfg.Stripe.SecretKey = key
	}
	if secret := os.Getenv("GREENPACK_PAYPAL_SECRET"); secret != "" {
		cfg.PayPal.Secret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be caught by unmarshalling.
func (c *Config) Validate() error {
	if _, err := c.Checkout.TaxRule(); err != nil {
		return err
	}
	if _, err := c.Checkout.Policy(); err != nil {
		return err
	}
	if _, err := c.Checkout.CartOptions(); err != nil {
		return err
	}
	if c.Checkout.DiscountAttempts < 0 || (c.Checkout.DiscountAttempts > 0 && c.Checkout.DiscountWindow <= 0) {
		return fmt.Errorf("checkout: discount limit %d per %s is invalid", c.Checkout.DiscountAttempts, c.Checkout.DiscountWindow)
	}
	if len(strings.TrimSpace(c.Checkout.Currency)) != 3 {
		return fmt.Errorf("checkout.currency: %q is not an ISO 4217 code", c.Checkout.Currency)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "greenpack")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 5*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 5*time.Second)
	v.SetDefault("http_client.response_timeout", 15*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Checkout defaults
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.tax_rate", "0.08")
	v.SetDefault("checkout.free_shipping_threshold", "")
	v.SetDefault("checkout.min_quantity", 1)
	v.SetDefault("checkout.max_quantity", 10)
	v.SetDefault("checkout.add_policy", string(cart.PolicyAppend))
	v.SetDefault("checkout.cart_ttl", 7*24*time.Hour)
	v.SetDefault("checkout.discount_attempts", 10)
	v.SetDefault("checkout.discount_window", 15*time.Minute)

	// Remote service defaults
	for _, svc := range []string{"shipping_rates", "discounts"} {
		v.SetDefault(svc+".base_url", "")
		v.SetDefault(svc+".api_key", "")
		v.SetDefault(svc+".timeout", 5*time.Second)
		v.SetDefault(svc+".failure_threshold", 5)
		v.SetDefault(svc+".circuit_timeout", 30*time.Second)
	}

	// Payment defaults
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("paypal.client_id", "")
	v.SetDefault("paypal.secret", "")
	v.SetDefault("paypal.is_prod", false)
	v.SetDefault("paypal.return_url", "")
	v.SetDefault("paypal.cancel_url", "")
}
