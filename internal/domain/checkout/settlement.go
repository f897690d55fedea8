package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/domain/order"
	"github.com/oakmart/storefront/internal/payment"
)

// Settlement applies asynchronous payment-outcome webhooks to orders. It is
// the only component permitted to mutate an order's payment status, and only
// for the unpaid-to-paid transition.
type Settlement struct {
	orders     order.Repository
	settings   payment.SettingsSource
	production bool
	now        func() time.Time
}

// NewSettlement creates a Settlement handler. production controls the
// fail-closed behaviour when no webhook secret is configured.
func NewSettlement(orders order.Repository, settings payment.SettingsSource, production bool) *Settlement {
	return &Settlement{
		orders:     orders,
		settings:   settings,
		production: production,
		now:        time.Now,
	}
}

// Handle verifies and applies one webhook delivery. Delivery is
// at-least-once, so the paid transition is a direct conditional field set:
// replaying the same event is a no-op, never an error.
func (s *Settlement) Handle(ctx context.Context, payload []byte, signature string) error {
	lg := zctx.From(ctx)

	settings, err := s.settings.Payment(ctx)
	if err != nil {
		return err
	}

	if settings.WebhookSecret == "" {
		// Unsigned webhooks are a development convenience only. In
		// production the endpoint fails closed instead of trusting input.
		if s.production {
			return payment.ErrNotConfigured
		}
		lg.Warn("webhook signature verification skipped: no secret configured")
	} else if err := payment.VerifySignature(payload, signature, settings.WebhookSecret, s.now()); err != nil {
		return err
	}

	ev, err := payment.ParseEvent(payload)
	if err != nil {
		return err
	}

	if ev.Type != payment.EventAuthorizationSucceeded {
		// Unknown event types are acknowledged, or the gateway will treat
		// the endpoint as broken and disable it.
		lg.Debug("ignoring webhook event", zap.String("type", ev.Type))
		return nil
	}
	if ev.Reference == "" {
		return errors.New("succeeded event missing payment reference")
	}

	updated, err := s.orders.MarkPaid(ctx, ev.Reference)
	if err != nil {
		return errors.Wrapf(err, "mark order paid for reference %s", ev.Reference)
	}
	if !updated {
		// Either a replayed delivery (order already paid) or a reference we
		// do not know. Both are acknowledged so the gateway stops retrying;
		// an unknown reference is still worth a distinct warning.
		if _, err := s.orders.GetByGatewayReference(ctx, ev.Reference); err != nil {
			if errors.Is(err, order.ErrNotFound) {
				lg.Warn("webhook for unknown payment reference",
					zap.String("reference", ev.Reference))
				return nil
			}
			return errors.Wrapf(err, "lookup order for reference %s", ev.Reference)
		}
		lg.Info("webhook replay ignored, order already paid",
			zap.String("reference", ev.Reference))
		return nil
	}

	lg.Info("order settled", zap.String("reference", ev.Reference))
	return nil
}
