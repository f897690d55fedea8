package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// PaymentStatus is the settlement state of an order. The webhook handler may
// only ever move it from unpaid to paid; refunds belong to a separate flow.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Status is the fulfillment lifecycle state of an order.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Item is an immutable line snapshot taken at order creation. Price,
// quantity, and amount are fixed here and never re-derived.
type Item struct {
	ProductID string
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// Order is created at checkout from a priced cart. GatewayReference holds
// the payment authorization id the settlement webhook uses to locate it.
type Order struct {
	ID               string
	UserID           string
	Items            []Item
	Subtotal         decimal.Decimal
	PromoDiscount    decimal.Decimal
	CouponCode       string
	CouponDiscount   decimal.Decimal
	Shipping         decimal.Decimal
	Total            decimal.Decimal
	PaymentMethod    string
	PaymentStatus    PaymentStatus
	Status           Status
	GatewayReference string
	CreatedAt        time.Time
}

// Repository defines persistence for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByGatewayReference(ctx context.Context, ref string) (*Order, error)
	// MarkPaid sets payment status to paid for the order with the given
	// gateway reference. It reports whether a row transitioned; a false
	// result with a nil error means the order was already paid, which makes
	// webhook replay a no-op.
	MarkPaid(ctx context.Context, ref string) (bool, error)
	// CountCouponUse reports how many of the user's orders redeemed the
	// given coupon code.
	CountCouponUse(ctx context.Context, userID, code string) (int, error)
}
