package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/cart"
	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/domain/order"
	"github.com/oakmart/storefront/internal/domain/promotion"
	"github.com/oakmart/storefront/internal/money"
	"github.com/oakmart/storefront/internal/payment"
)

// ErrEmptyCart is returned when no valid lines remain after re-pricing the
// cart at checkout.
var ErrEmptyCart = errors.New("cart is empty")

// StockError reports which product could not be reserved during checkout.
type StockError struct {
	ProductID string
	VariantID string
}

func (e *StockError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("insufficient stock for product %s variant %s", e.ProductID, e.VariantID)
	}
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

func (e *StockError) Unwrap() error { return catalog.ErrInsufficientStock }

// CreateIntentRequest is the caller's input for a checkout attempt.
type CreateIntentRequest struct {
	CouponCode string
	// IdempotencyKey is forwarded to the gateway unmodified. When absent the
	// gateway call is not idempotency-protected; the issuer never invents
	// one.
	IdempotencyKey string
	PaymentMethod  string
}

// Intent is the client-facing result of a created payment authorization.
type Intent struct {
	OrderID      string
	Reference    string
	ClientSecret string
	Amount       decimal.Decimal
	AmountMinor  int64
	Currency     string
}

// Service is the checkout intent issuer. It reprices the cart server-side,
// layers promotional and coupon discounts, reserves stock atomically,
// requests exactly one gateway authorization per attempt, and persists the
// resulting order.
type Service struct {
	carts    cart.Repository
	valuator *cart.Valuator
	promos   *promotion.Engine
	coupons  *promotion.CouponValidator
	redeem   promotion.CouponRepository
	catalog  catalog.Repository
	orders   order.Repository
	gateway  payment.Gateway
	settings payment.SettingsSource
	shipping cart.ShippingPolicy
	currency string
	now      func() time.Time
}

// NewService creates the checkout Service with its collaborators.
func NewService(
	carts cart.Repository,
	valuator *cart.Valuator,
	promos *promotion.Engine,
	coupons *promotion.CouponValidator,
	redeem promotion.CouponRepository,
	products catalog.Repository,
	orders order.Repository,
	gateway payment.Gateway,
	settings payment.SettingsSource,
	shipping cart.ShippingPolicy,
	currency string,
) *Service {
	return &Service{
		carts:    carts,
		valuator: valuator,
		promos:   promos,
		coupons:  coupons,
		redeem:   redeem,
		catalog:  products,
		orders:   orders,
		gateway:  gateway,
		settings: settings,
		shipping: shipping,
		currency: currency,
		now:      time.Now,
	}
}

// pricedLine is a cart line after the promotional discount pass.
type pricedLine struct {
	cart.PricedLine
	unitPrice decimal.Decimal
	amount    decimal.Decimal
}

// CreateIntent turns the user's cart into a single payment authorization.
// The cart total is always recomputed server-side; client-submitted totals
// are never trusted.
func (s *Service) CreateIntent(ctx context.Context, userID string, req CreateIntentRequest) (*Intent, error) {
	settings, err := s.settings.Payment(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled || settings.SecretKey == "" {
		return nil, payment.ErrNotConfigured
	}

	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	priced, err := s.valuator.Price(ctx, lines)
	if err != nil {
		return nil, errors.Wrap(err, "price cart")
	}
	if len(priced.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	final, subtotal, promoDiscount, err := s.applyPromotions(ctx, priced.Lines, now)
	if err != nil {
		return nil, err
	}

	// Coupon is validated against the post-promotion subtotal; shipping is
	// excluded from the eligible amount. The quote carries the stored form
	// of the code, which is what must be redeemed and persisted so per-user
	// counting matches regardless of how the user typed it.
	couponDiscount := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		quote, err := s.coupons.Validate(ctx, req.CouponCode, userID, subtotal)
		if err != nil {
			return nil, err
		}
		couponDiscount = quote.Amount
		couponCode = quote.Code
	}

	shipping := s.shipping.Cost(subtotal)
	total := money.Round(money.FloorZero(subtotal.Sub(couponDiscount)).Add(shipping))

	reserved, err := s.reserveStock(ctx, final)
	if err != nil {
		return nil, err
	}

	auth, err := s.gateway.CreateAuthorization(ctx, settings, payment.AuthorizationRequest{
		AmountMinor:    money.MinorUnits(total),
		Currency:       s.currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       map[string]string{"user_id": userID},
	})
	if err != nil {
		s.releaseStock(ctx, reserved)
		return nil, errors.Wrap(err, "create authorization")
	}

	// The coupon slot is claimed after the authorization exists: a failed
	// redemption aborts the checkout and the unconfirmed authorization is
	// never charged, while the reverse order would burn redemptions on
	// gateway failures.
	if couponCode != "" {
		if err := s.redeem.IncrementUsage(ctx, couponCode); err != nil {
			s.releaseStock(ctx, reserved)
			return nil, err
		}
	}

	o := &order.Order{
		ID:               uuid.New().String(),
		UserID:           userID,
		Items:            orderItems(final),
		Subtotal:         subtotal,
		PromoDiscount:    promoDiscount,
		CouponCode:       couponCode,
		CouponDiscount:   couponDiscount,
		Shipping:         shipping,
		Total:            total,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    order.PaymentUnpaid,
		Status:           order.StatusNew,
		GatewayReference: auth.Reference,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseStock(ctx, reserved)
		return nil, errors.Wrap(err, "create order")
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	return &Intent{
		OrderID:      o.ID,
		Reference:    auth.Reference,
		ClientSecret: auth.ClientSecret,
		Amount:       total,
		AmountMinor:  money.MinorUnits(total),
		Currency:     s.currency,
	}, nil
}

// applyPromotions resolves the winning promotional discount for each line
// and returns the adjusted lines, the post-promotion subtotal, and the total
// promotional discount.
func (s *Service) applyPromotions(ctx context.Context, lines []cart.PricedLine, now time.Time) ([]pricedLine, decimal.Decimal, decimal.Decimal, error) {
	final := make([]pricedLine, 0, len(lines))
	subtotal := decimal.Zero
	discount := decimal.Zero

	for _, pl := range lines {
		d, err := s.promos.ResolveForProduct(ctx, pl.Line.ProductID, pl.CategoryID, now)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, errors.Wrapf(err, "resolve discount for product %s", pl.Line.ProductID)
		}

		unit := promotion.Apply(d, pl.UnitPrice)
		amount := money.Round(unit.Mul(decimal.NewFromInt(int64(pl.Line.Quantity))))

		final = append(final, pricedLine{PricedLine: pl, unitPrice: unit, amount: amount})
		subtotal = subtotal.Add(amount)
		discount = discount.Add(money.FloorZero(pl.Amount.Sub(amount)))
	}
	return final, subtotal, discount, nil
}

// reservation tracks an applied stock decrement for compensation.
type reservation struct {
	productID string
	variantID string
	qty       int
}

// reserveStock decrements stock for every line via the data layer's atomic
// conditional update. On any failure the already-applied decrements are
// released before the error is returned.
func (s *Service) reserveStock(ctx context.Context, lines []pricedLine) ([]reservation, error) {
	reserved := make([]reservation, 0, len(lines))
	for _, l := range lines {
		err := s.catalog.ReserveStock(ctx, l.Line.ProductID, l.Line.VariantID, l.Line.Quantity)
		if err != nil {
			s.releaseStock(ctx, reserved)
			if errors.Is(err, catalog.ErrInsufficientStock) {
				return nil, &StockError{ProductID: l.Line.ProductID, VariantID: l.Line.VariantID}
			}
			return nil, errors.Wrapf(err, "reserve stock for product %s", l.Line.ProductID)
		}
		reserved = append(reserved, reservation{
			productID: l.Line.ProductID,
			variantID: l.Line.VariantID,
			qty:       l.Line.Quantity,
		})
	}
	return reserved, nil
}

func (s *Service) releaseStock(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		// Release is best-effort compensation; the original error wins.
		_ = s.catalog.ReleaseStock(ctx, r.productID, r.variantID, r.qty)
	}
}

func orderItems(lines []pricedLine) []order.Item {
	items := make([]order.Item, len(lines))
	for i, l := range lines {
		items[i] = order.Item{
			ProductID: l.Line.ProductID,
			VariantID: l.Line.VariantID,
			Quantity:  l.Line.Quantity,
			UnitPrice: l.unitPrice,
			Amount:    l.amount,
		}
	}
	return items
}
