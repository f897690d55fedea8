package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Line is one product (and optional variant) entry in a user's cart.
//
// UnitPrice is a snapshot taken when the line was added or its quantity last
// changed. Cart totals stay stable across catalog price edits; only explicit
// line mutations re-derive the price from current catalog state. Stock, by
// contrast, is always re-validated at read time.
type Line struct {
	ID        string
	UserID    string
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Repository defines persistence for cart lines.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Line, error)
	GetByID(ctx context.Context, userID, lineID string) (*Line, error)
	// FindLine returns the user's existing line for a product/variant pair,
	// or ErrLineNotFound.
	FindLine(ctx context.Context, userID, productID, variantID string) (*Line, error)
	Create(ctx context.Context, line *Line) error
	Update(ctx context.Context, line *Line) error
	Delete(ctx context.Context, userID, lineID string) error
	Clear(ctx context.Context, userID string) error
}
