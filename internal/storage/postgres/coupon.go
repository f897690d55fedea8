package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/domain/promotion"
)

const (
	getCouponSQL = `SELECT code, discount_type, value, min_purchase, max_discount,
			usage_limit, used_count, per_user_limit, status, valid_from, valid_until
		FROM coupons WHERE code = UPPER($1)`

	// The redemption slot is claimed and the expired transition applied in
	// one statement, so concurrent redemptions can never push used_count
	// past usage_limit.
	incrementCouponSQL = `UPDATE coupons
		SET used_count = used_count + 1,
		    status = CASE
		        WHEN usage_limit > 0 AND used_count + 1 >= usage_limit THEN 'expired'
		        ELSE status
		    END
		WHERE code = UPPER($1)
		  AND status = 'active'
		  AND (usage_limit = 0 OR used_count < usage_limit)`

	couponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = UPPER($1))`
)

var _ promotion.CouponRepository = (*CouponRepository)(nil)

// CouponRepository implements promotion.CouponRepository backed by
// PostgreSQL. Coupon codes are stored upper-cased and matched
// case-insensitively.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code. Returns
// promotion.ErrCouponNotFound when no coupon exists for the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*promotion.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUsage claims one redemption slot with a single conditional
// UPDATE. When no row matches, the coupon is either unknown or out of
// slots; a follow-up existence check distinguishes the two.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, incrementCouponSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, couponExistsSQL, code).Scan(&exists); err != nil {
		return fmt.Errorf("checking coupon %q: %w", code, err)
	}
	if !exists {
		return promotion.ErrCouponNotFound
	}
	return promotion.ErrCouponUsageLimit
}

func scanCoupon(row pgx.CollectableRow) (promotion.Coupon, error) {
	var c promotion.Coupon
	err := row.Scan(&c.Code, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.UsageLimit, &c.UsedCount, &c.PerUserLimit, &c.Status, &c.ValidFrom, &c.ValidUntil)
	return c, err
}
