package promotion

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/money"
)

// DiscountType enumerates the supported promotional discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces a price by a whole percentage in [1,100].
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed subtracts a fixed amount, floored at zero.
	DiscountFixed DiscountType = "fixed"
)

// Discount validation errors.
var (
	ErrInvalidDiscountValue = errors.New("invalid discount value")
	ErrNoDiscountTarget     = errors.New("discount must target at least one category or product")
)

var hundred = decimal.NewFromInt(100)

// Discount is a time-boxed, non-code price reduction targeting specific
// categories or products. At most one discount applies to a product at any
// instant; ties on eligibility are broken by Priority, then recency.
type Discount struct {
	ID          string
	Title       string
	Type        DiscountType
	Value       decimal.Decimal
	StartsAt    time.Time
	EndsAt      time.Time
	Active      bool
	CategoryIDs []string
	ProductIDs  []string
	Priority    int
	CreatedAt   time.Time
}

// Validate checks the discount's structural invariants: percentage values
// are integers in [1,100], fixed values are positive, and the discount
// targets at least one category or product.
func (d *Discount) Validate() error {
	switch d.Type {
	case DiscountPercentage:
		if !d.Value.IsInteger() || d.Value.LessThan(decimal.NewFromInt(1)) || d.Value.GreaterThan(hundred) {
			return ErrInvalidDiscountValue
		}
	case DiscountFixed:
		if !d.Value.IsPositive() {
			return ErrInvalidDiscountValue
		}
	default:
		return errors.Errorf("unsupported discount type: %q", d.Type)
	}
	if len(d.CategoryIDs) == 0 && len(d.ProductIDs) == 0 {
		return ErrNoDiscountTarget
	}
	return nil
}

// appliesAt reports whether the discount is live at the given instant.
func (d *Discount) appliesAt(now time.Time) bool {
	return d.Active && !now.Before(d.StartsAt) && !now.After(d.EndsAt)
}

// targets reports whether the discount covers the given product or category.
func (d *Discount) targets(productID, categoryID string) bool {
	return slices.Contains(d.ProductIDs, productID) ||
		(categoryID != "" && slices.Contains(d.CategoryIDs, categoryID))
}

// DiscountRepository provides read access to promotional discount records.
type DiscountRepository interface {
	// FindActiveFor returns discounts that are active, live at now, and
	// target the given product or category.
	FindActiveFor(ctx context.Context, productID, categoryID string, now time.Time) ([]Discount, error)
}

// Engine resolves which promotional discount applies to a product.
type Engine struct {
	discounts DiscountRepository
}

// NewEngine creates a promotion Engine.
func NewEngine(discounts DiscountRepository) *Engine {
	return &Engine{discounts: discounts}
}

// ResolveForProduct returns the single winning discount for a product at the
// given instant, or nil when none applies. Among eligible discounts the
// highest Priority wins; ties go to the most recently created.
func (e *Engine) ResolveForProduct(ctx context.Context, productID, categoryID string, now time.Time) (*Discount, error) {
	eligible, err := e.discounts.FindActiveFor(ctx, productID, categoryID, now)
	if err != nil {
		return nil, errors.Wrap(err, "find discounts")
	}

	var winner *Discount
	for i := range eligible {
		d := &eligible[i]
		if !d.appliesAt(now) || !d.targets(productID, categoryID) {
			continue
		}
		if winner == nil ||
			d.Priority > winner.Priority ||
			(d.Priority == winner.Priority && d.CreatedAt.After(winner.CreatedAt)) {
			winner = d
		}
	}
	return winner, nil
}

// Apply returns the price after the discount, floored at zero and rounded
// with the shared rule. A nil discount leaves the price unchanged.
func Apply(d *Discount, price decimal.Decimal) decimal.Decimal {
	if d == nil {
		return money.Round(price)
	}
	switch d.Type {
	case DiscountPercentage:
		factor := hundred.Sub(d.Value).Div(hundred)
		return money.Round(money.FloorZero(price.Mul(factor)))
	case DiscountFixed:
		return money.Round(money.FloorZero(price.Sub(d.Value)))
	default:
		return money.Round(price)
	}
}
