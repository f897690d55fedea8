package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/payment"
)

// Runtime-administered settings keys for the payment gateway.
const (
	settingGatewayEnabled = "payment.enabled"
	settingSecretKey      = "payment.secret_key"
	settingPublishableKey = "payment.publishable_key"
	settingWebhookSecret  = "payment.webhook_secret"
)

const getPaymentSettingsSQL = `SELECT key, value FROM settings WHERE key LIKE 'payment.%'`

var _ payment.SettingsSource = (*SettingsRepository)(nil)

// SettingsRepository reads runtime-administered settings from PostgreSQL.
// Gateway credentials live here rather than in static configuration so an
// administrator can rotate them without a deploy.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Payment returns the current gateway settings. Missing credentials surface
// as payment.ErrNotConfigured, never as a zero-value success.
func (r *SettingsRepository) Payment(ctx context.Context) (payment.Settings, error) {
	rows, err := r.pool.Query(ctx, getPaymentSettingsSQL)
	if err != nil {
		return payment.Settings{}, fmt.Errorf("reading payment settings: %w", err)
	}
	defer rows.Close()

	var s payment.Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return payment.Settings{}, fmt.Errorf("scanning setting: %w", err)
		}
		switch key {
		case settingGatewayEnabled:
			s.Enabled = value == "true"
		case settingSecretKey:
			s.SecretKey = value
		case settingPublishableKey:
			s.PublishableKey = value
		case settingWebhookSecret:
			s.WebhookSecret = value
		}
	}
	if err := rows.Err(); err != nil {
		return payment.Settings{}, fmt.Errorf("reading payment settings: %w", err)
	}

	if s.SecretKey == "" {
		return payment.Settings{}, payment.ErrNotConfigured
	}
	return s, nil
}
