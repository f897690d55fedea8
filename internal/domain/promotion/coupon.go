package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CouponType enumerates the supported coupon discount strategies.
type CouponType string

const (
	// CouponFixed subtracts a fixed amount, capped at the order amount.
	CouponFixed CouponType = "fixed"
	// CouponPercent applies a percentage capped by MaxDiscount.
	CouponPercent CouponType = "percent"
)

// CouponStatus is the lifecycle state of a coupon.
type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
	// CouponExpired is set the instant UsedCount reaches UsageLimit, in the
	// same atomic step as the increment.
	CouponExpired CouponStatus = "expired"
)

// Coupon rejection reasons, each independently testable.
var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon not active")
	ErrCouponOutsideWindow = errors.New("coupon outside validity window")
	ErrCouponUsageLimit    = errors.New("coupon usage limit reached")
	ErrCouponMinPurchase   = errors.New("order amount below coupon minimum")
	ErrCouponPerUserLimit  = errors.New("coupon per-user limit reached")
)

// Coupon is a user-entered code granting a capped, usage-limited discount on
// an order. UsedCount is monotonically non-decreasing; it is mutated only by
// the repository's atomic increment.
type Coupon struct {
	Code         string
	Type         CouponType
	Value        decimal.Decimal
	MinPurchase  decimal.Decimal
	MaxDiscount  decimal.Decimal
	UsageLimit   int
	UsedCount    int
	PerUserLimit int
	Status       CouponStatus
	ValidFrom    time.Time
	ValidUntil   time.Time
}

// CouponRepository provides coupon lookup and atomic redemption.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsage is a single atomic conditional increment of UsedCount.
	// It transitions the coupon to expired when the post-increment count
	// reaches the usage limit in the same step, and returns
	// ErrCouponUsageLimit when no redemption slot remains. Concurrent
	// redemptions can never push UsedCount past UsageLimit.
	IncrementUsage(ctx context.Context, code string) error
}

// RedemptionCounter reports how many times a user has already redeemed a
// coupon, used to enforce per-user limits.
type RedemptionCounter interface {
	CountCouponUse(ctx context.Context, userID, code string) (int, error)
}
