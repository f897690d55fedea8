package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakmart/storefront/internal/domain/catalog"
	"github.com/oakmart/storefront/internal/money"
)

// Service handles cart mutations. Every mutation that changes a line's
// quantity re-derives the unit price snapshot from current catalog state.
type Service struct {
	lines   Repository
	catalog catalog.Repository
}

// NewService creates a cart Service.
func NewService(lines Repository, products catalog.Repository) *Service {
	return &Service{lines: lines, catalog: products}
}

// Add puts a product (or variant) into the user's cart. When a line for the
// same product/variant already exists, the quantities are merged and the
// whole line is repriced.
func (s *Service) Add(ctx context.Context, userID, productID, variantID string, qty int) (*Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	quote, err := s.quote(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	existing, err := s.lines.FindLine(ctx, userID, productID, variantID)
	if err != nil && !errors.Is(err, ErrLineNotFound) {
		return nil, errors.Wrap(err, "find cart line")
	}

	total := qty
	if existing != nil {
		total += existing.Quantity
	}
	if quote.Stock < total {
		return nil, catalog.ErrInsufficientStock
	}

	if existing != nil {
		existing.Quantity = total
		existing.UnitPrice = quote.UnitPrice
		existing.Amount = lineAmount(quote.UnitPrice, total)
		if err := s.lines.Update(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "update cart line")
		}
		return existing, nil
	}

	line := &Line{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		VariantID: quote.VariantID,
		Quantity:  qty,
		UnitPrice: quote.UnitPrice,
		Amount:    lineAmount(quote.UnitPrice, qty),
	}
	if err := s.lines.Create(ctx, line); err != nil {
		return nil, errors.Wrap(err, "create cart line")
	}
	return line, nil
}

// UpdateQuantity sets a line's quantity and repriced snapshot.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, qty int) (*Line, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.lines.GetByID(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}

	quote, err := s.quote(ctx, line.ProductID, line.VariantID)
	if err != nil {
		return nil, err
	}
	if quote.Stock < qty {
		return nil, catalog.ErrInsufficientStock
	}

	line.Quantity = qty
	line.UnitPrice = quote.UnitPrice
	line.Amount = lineAmount(quote.UnitPrice, qty)
	if err := s.lines.Update(ctx, line); err != nil {
		return nil, errors.Wrap(err, "update cart line")
	}
	return line, nil
}

// Remove deletes a single line from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, lineID string) error {
	return s.lines.Delete(ctx, userID, lineID)
}

// Clear removes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.lines.Clear(ctx, userID)
}

func (s *Service) quote(ctx context.Context, productID, variantID string) (catalog.Quote, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return catalog.Quote{}, err
	}
	return catalog.Resolve(p, variantID)
}

func lineAmount(unit decimal.Decimal, qty int) decimal.Decimal {
	return money.Round(unit.Mul(decimal.NewFromInt(int64(qty))))
}
