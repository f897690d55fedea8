package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, items, subtotal, promo_discount,
			coupon_code, coupon_discount, shipping, total, payment_method,
			payment_status, status, gateway_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	getOrderByReferenceSQL = `SELECT id, user_id, items, subtotal, promo_discount,
			coupon_code, coupon_discount, shipping, total, payment_method,
			payment_status, status, gateway_reference, created_at
		FROM orders WHERE gateway_reference = $1`

	// The paid transition is a conditional field set, never an increment, so
	// at-least-once webhook delivery is naturally idempotent.
	markOrderPaidSQL = `UPDATE orders SET payment_status = 'paid'
		WHERE gateway_reference = $1 AND payment_status = 'unpaid'`

	countCouponUseSQL = `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND UPPER(coupon_code) = UPPER($2)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// items are immutable snapshots serialized to a JSONB column.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// itemRecord is the JSONB shape for one order item snapshot.
type itemRecord struct {
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// Create persists a new order with its item snapshots.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	records := make([]itemRecord, len(o.Items))
	for i, it := range o.Items {
		records[i] = itemRecord(it)
	}
	itemsJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, itemsJSON, o.Subtotal, o.PromoDiscount,
		o.CouponCode, o.CouponDiscount, o.Shipping, o.Total, o.PaymentMethod,
		o.PaymentStatus, o.Status, o.GatewayReference)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByGatewayReference locates the order holding a payment authorization
// reference. Returns order.ErrNotFound when no order holds it.
func (r *OrderRepository) GetByGatewayReference(ctx context.Context, ref string) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, getOrderByReferenceSQL, ref).Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.Subtotal, &o.PromoDiscount,
		&o.CouponCode, &o.CouponDiscount, &o.Shipping, &o.Total, &o.PaymentMethod,
		&o.PaymentStatus, &o.Status, &o.GatewayReference, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order by reference %q: %w", ref, err)
	}

	var records []itemRecord
	if err := json.Unmarshal(itemsJSON, &records); err != nil {
		return nil, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	o.Items = make([]order.Item, len(records))
	for i, rec := range records {
		o.Items[i] = order.Item(rec)
	}
	o.CreatedAt = createdAt
	return &o, nil
}

// MarkPaid applies the idempotent unpaid-to-paid transition and reports
// whether a row changed.
func (r *OrderRepository) MarkPaid(ctx context.Context, ref string) (bool, error) {
	tag, err := r.pool.Exec(ctx, markOrderPaidSQL, ref)
	if err != nil {
		return false, fmt.Errorf("marking order paid for reference %q: %w", ref, err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountCouponUse reports how many of the user's orders redeemed the code.
func (r *OrderRepository) CountCouponUse(ctx context.Context, userID, code string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countCouponUseSQL, userID, code).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting coupon use for user %q: %w", userID, err)
	}
	return n, nil
}
