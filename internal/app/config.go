package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/cart"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
// Payment gateway credentials are deliberately absent: they are
// runtime-administered settings, not static configuration.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Environment string `default:"development" usage:"Runtime environment: development or production"`

	GatewayURL   string `default:"https://api.payment.example.com" usage:"Payment gateway API base URL" flag:"gateway-url"`
	Currency     string `default:"usd" usage:"Charge currency (ISO 4217, lower case)"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`

	Shipping  ShippingConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// ShippingConfig is the deployment's shipping policy: a flat fee waived
// above a subtotal threshold.
type ShippingConfig struct {
	FlatFee       string `default:"10" usage:"Flat shipping fee" flag:"shipping-fee"`
	FreeThreshold string `default:"100" usage:"Subtotal at which shipping becomes free" flag:"shipping-free-above"`
}

// Policy parses the configured amounts into the cart layer's policy value.
func (c ShippingConfig) Policy() (cart.ShippingPolicy, error) {
	fee, err := decimal.NewFromString(c.FlatFee)
	if err != nil {
		return cart.ShippingPolicy{}, errors.Wrap(err, "parse shipping fee")
	}
	threshold, err := decimal.NewFromString(c.FreeThreshold)
	if err != nil {
		return cart.ShippingPolicy{}, errors.Wrap(err, "parse shipping free threshold")
	}
	return cart.ShippingPolicy{FlatFee: fee, FreeThreshold: threshold}, nil
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Production reports whether the runtime environment is production, which
// flips the webhook handler into fail-closed mode.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT to the STORE_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
