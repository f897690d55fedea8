package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog reads and stock accounting.
var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when an atomic stock reservation
	// cannot be satisfied.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for purchase. A product either
// carries its own price/discount/stock triple, or defers entirely to its
// variants when HasVariants is set. It is never priced at both levels.
type Product struct {
	ID              string
	Name            string
	CategoryID      string
	ListPrice       decimal.Decimal
	DiscountPercent int
	Stock           int
	HasVariants     bool
	Variants        []Variant
	Active          bool
}

// Variant is a specific purchasable configuration of a product with its own
// price, discount, and stock.
type Variant struct {
	ID              string
	Name            string
	ListPrice       decimal.Decimal
	DiscountPercent int
	Stock           int
	Active          bool
}

// Repository defines catalog read access and atomic stock accounting.
// ReserveStock must be a single conditional update at the data layer
// (decrement by qty only where stock >= qty); ReleaseStock is its
// compensation for checkout attempts that fail after reservation.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	ReserveStock(ctx context.Context, productID, variantID string, qty int) error
	ReleaseStock(ctx context.Context, productID, variantID string, qty int) error
}
