package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/money"
)

// CouponQuote holds the discount a validated coupon grants against an order
// amount.
type CouponQuote struct {
	Code   string
	Amount decimal.Decimal
}

// CouponValidator validates a coupon code against an order amount and the
// redeeming user's history, and computes the granted discount. Validation is
// a pure read; redemption is a separate atomic step at checkout.
type CouponValidator struct {
	coupons     CouponRepository
	redemptions RedemptionCounter
	now         func() time.Time
}

// NewCouponValidator creates a CouponValidator.
func NewCouponValidator(coupons CouponRepository, redemptions RedemptionCounter) *CouponValidator {
	return &CouponValidator{
		coupons:     coupons,
		redemptions: redemptions,
		now:         time.Now,
	}
}

// Validate checks every eligibility rule for the code and returns the
// discount it would grant on orderAmount. Rejections surface as the sentinel
// errors declared in this package.
func (v *CouponValidator) Validate(ctx context.Context, code, userID string, orderAmount decimal.Decimal) (*CouponQuote, error) {
	c, err := v.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.Status != CouponActive {
		return nil, ErrCouponInactive
	}

	now := v.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, ErrCouponOutsideWindow
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, ErrCouponUsageLimit
	}

	if orderAmount.LessThan(c.MinPurchase) {
		return nil, ErrCouponMinPurchase
	}

	if c.PerUserLimit > 0 {
		used, err := v.redemptions.CountCouponUse(ctx, userID, c.Code)
		if err != nil {
			return nil, errors.Wrap(err, "count coupon use")
		}
		if used >= c.PerUserLimit {
			return nil, ErrCouponPerUserLimit
		}
	}

	return &CouponQuote{
		Code:   c.Code,
		Amount: Quote(c, orderAmount),
	}, nil
}

// Quote computes the discount amount a coupon grants on orderAmount. Fixed
// coupons contribute min(value, orderAmount); percent coupons contribute
// orderAmount*value/100 capped by MaxDiscount when set. Either way the
// discount never exceeds the order amount.
func Quote(c *Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case CouponFixed:
		amount = decimal.Min(c.Value, orderAmount)
	case CouponPercent:
		amount = orderAmount.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, c.MaxDiscount)
		}
	default:
		return decimal.Zero
	}
	amount = decimal.Min(amount, orderAmount)
	return money.Round(money.FloorZero(amount))
}
