// Command seed-db loads catalog, discount, coupon, API key, and payment
// settings fixtures into the database for local development.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/promotion"
	"github.com/oakmart/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CategoryID      string          `json:"category_id"`
	ListPrice       decimal.Decimal `json:"list_price"`
	DiscountPercent int             `json:"discount_percent"`
	Stock           int             `json:"stock"`
	Active          bool            `json:"active"`
	Variants        []variantJSON   `json:"variants,omitempty"`
}

type variantJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	ListPrice       decimal.Decimal `json:"list_price"`
	DiscountPercent int             `json:"discount_percent"`
	Stock           int             `json:"stock"`
	Active          bool            `json:"active"`
}

type couponJSON struct {
	Code         string          `json:"code"`
	Type         string          `json:"type"`
	Value        decimal.Decimal `json:"value"`
	MinPurchase  decimal.Decimal `json:"min_purchase"`
	MaxDiscount  decimal.Decimal `json:"max_discount"`
	UsageLimit   int             `json:"usage_limit"`
	PerUserLimit int             `json:"per_user_limit"`
	ValidDays    int             `json:"valid_days"`
}

type discountJSON struct {
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	DaysActive  int             `json:"days_active"`
	CategoryIDs []string        `json:"category_ids"`
	ProductIDs  []string        `json:"product_ids"`
	Priority    int             `json:"priority"`
}

type seedFile struct {
	Products  []productJSON  `json:"products"`
	Coupons   []couponJSON   `json:"coupons"`
	Discounts []discountJSON `json:"discounts"`
}

func main() {
	var (
		databaseURL   string
		seedPath      string
		apiKey        string
		apiKeyUser    string
		apiKeyPepper  string
		gatewayKey    string
		webhookSecret string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/storefront.json", "path to seed JSON file")
	flag.StringVar(&apiKey, "api-key", "", "storefront API key to seed (or STORE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyUser, "api-key-user", "dev-user", "customer user ID the seeded API key acts for")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.StringVar(&gatewayKey, "gateway-secret-key", "", "payment gateway secret key to store in settings")
	flag.StringVar(&webhookSecret, "webhook-secret", "", "webhook signing secret to store in settings")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("STORE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath, apiKey, apiKeyUser, apiKeyPepper, gatewayKey, webhookSecret); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedPath, apiKey, apiKeyUser, pepper, gatewayKey, webhookSecret string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	if err := seedCatalog(ctx, pool, seed.Products); err != nil {
		return err
	}
	if err := seedCoupons(ctx, pool, seed.Coupons); err != nil {
		return err
	}
	if err := seedDiscounts(ctx, pool, seed.Discounts); err != nil {
		return err
	}
	if apiKey != "" {
		if err := seedAPIKey(ctx, pool, apiKey, apiKeyUser, pepper); err != nil {
			return err
		}
	}
	if gatewayKey != "" {
		if err := seedSettings(ctx, pool, gatewayKey, webhookSecret); err != nil {
			return err
		}
	}
	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	for _, p := range products {
		hasVariants := len(p.Variants) > 0
		_, err := pool.Exec(ctx, `INSERT INTO products
				(id, name, category_id, list_price, discount_percent, stock, has_variants, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, category_id = EXCLUDED.category_id,
				list_price = EXCLUDED.list_price, discount_percent = EXCLUDED.discount_percent,
				stock = EXCLUDED.stock, has_variants = EXCLUDED.has_variants, active = EXCLUDED.active`,
			p.ID, p.Name, p.CategoryID, p.ListPrice, p.DiscountPercent, p.Stock, hasVariants, p.Active)
		if err != nil {
			return errors.Wrapf(err, "seed product %s", p.ID)
		}
		for i, v := range p.Variants {
			_, err := pool.Exec(ctx, `INSERT INTO product_variants
					(id, product_id, name, list_price, discount_percent, stock, active, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, list_price = EXCLUDED.list_price,
					discount_percent = EXCLUDED.discount_percent, stock = EXCLUDED.stock,
					active = EXCLUDED.active, position = EXCLUDED.position`,
				v.ID, p.ID, v.Name, v.ListPrice, v.DiscountPercent, v.Stock, v.Active, i)
			if err != nil {
				return errors.Wrapf(err, "seed variant %s", v.ID)
			}
		}
	}
	slog.Info("seeded products", slog.Int("count", len(products)))
	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, coupons []couponJSON) error {
	now := time.Now()
	for _, c := range coupons {
		validDays := c.ValidDays
		if validDays <= 0 {
			validDays = 30
		}
		_, err := pool.Exec(ctx, `INSERT INTO coupons
				(code, discount_type, value, min_purchase, max_discount,
				 usage_limit, per_user_limit, status, valid_from, valid_until)
			VALUES (UPPER($1), $2, $3, $4, $5, $6, $7, 'active', $8, $9)
			ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.PerUserLimit, now, now.AddDate(0, 0, validDays))
		if err != nil {
			return errors.Wrapf(err, "seed coupon %s", c.Code)
		}
	}
	slog.Info("seeded coupons", slog.Int("count", len(coupons)))
	return nil
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool, discounts []discountJSON) error {
	now := time.Now()
	for _, dj := range discounts {
		d, err := buildDiscount(dj, now)
		if err != nil {
			return errors.Wrapf(err, "seed discount %q", dj.Title)
		}
		_, err = pool.Exec(ctx, `INSERT INTO discounts
				(id, title, discount_type, value, starts_at, ends_at,
				 active, category_ids, product_ids, priority)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9)`,
			d.ID, d.Title, d.Type, d.Value, d.StartsAt, d.EndsAt,
			d.CategoryIDs, d.ProductIDs, d.Priority)
		if err != nil {
			return errors.Wrapf(err, "seed discount %q", d.Title)
		}
	}
	slog.Info("seeded discounts", slog.Int("count", len(discounts)))
	return nil
}

// buildDiscount converts a seed record into a domain discount, rejecting
// records that would never pass the promotion engine's invariants.
func buildDiscount(dj discountJSON, now time.Time) (*promotion.Discount, error) {
	days := dj.DaysActive
	if days <= 0 {
		days = 14
	}
	d := &promotion.Discount{
		ID:          uuid.New().String(),
		Title:       dj.Title,
		Type:        promotion.DiscountType(dj.Type),
		Value:       dj.Value,
		StartsAt:    now,
		EndsAt:      now.AddDate(0, 0, days),
		Active:      true,
		CategoryIDs: dj.CategoryIDs,
		ProductIDs:  dj.ProductIDs,
		Priority:    dj.Priority,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, key, userID, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	hash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (id, key_hash, user_id, name)
		VALUES ($1, $2, $3, 'seed') ON CONFLICT (key_hash) DO NOTHING`,
		uuid.New().String(), hash, userID)
	if err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("seeded api key", slog.String("user", userID))
	return nil
}

func seedSettings(ctx context.Context, pool *pgxpool.Pool, gatewayKey, webhookSecret string) error {
	settings := map[string]string{
		"payment.enabled":    "true",
		"payment.secret_key": gatewayKey,
	}
	if webhookSecret != "" {
		settings["payment.webhook_secret"] = webhookSecret
	}
	for key, value := range settings {
		_, err := pool.Exec(ctx, `INSERT INTO settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, value)
		if err != nil {
			return errors.Wrapf(err, "seed setting %s", key)
		}
	}
	slog.Info("seeded payment settings")
	return nil
}
