// Package payment holds the payment-gateway collaborator surface: the
// authorization client, runtime-administered gateway settings, and webhook
// signature verification.
package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotConfigured is returned when gateway credentials are absent from the
// runtime settings. Callers fail fast instead of attempting a call that will
// error upstream.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Settings are gateway credentials administered at runtime (stored in the
// settings table, not static configuration).
type Settings struct {
	Enabled        bool
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// SettingsSource provides the current gateway settings. Implementations read
// the runtime-administered record; absence of credentials is a
// distinguishable ErrNotConfigured, never a zero-value success.
type SettingsSource interface {
	Payment(ctx context.Context) (Settings, error)
}

// AuthorizationRequest describes a single payment authorization to create.
type AuthorizationRequest struct {
	// AmountMinor is the charge amount in the currency's minor units.
	AmountMinor int64
	Currency    string
	// IdempotencyKey is forwarded to the gateway unmodified when present.
	// The client never synthesizes one: a fabricated key would mask genuine
	// distinct attempts.
	IdempotencyKey string
	Metadata       map[string]string
}

// Authorization is the gateway's reference for a created payment intent.
type Authorization struct {
	Reference    string
	ClientSecret string
}

// Gateway creates payment authorizations at the external processor.
type Gateway interface {
	CreateAuthorization(ctx context.Context, settings Settings, req AuthorizationRequest) (*Authorization, error)
}

// Event is a parsed payment-outcome notification delivered by webhook.
type Event struct {
	ID        string
	Type      string
	Reference string
}

// EventAuthorizationSucceeded is the event type that settles an order.
const EventAuthorizationSucceeded = "payment_intent.succeeded"
