package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/domain/cart"
)

const (
	listCartLinesSQL = `SELECT id, user_id, product_id, variant_id, quantity, unit_price, amount, created_at
		FROM cart_lines WHERE user_id = $1 ORDER BY created_at`

	getCartLineSQL = `SELECT id, user_id, product_id, variant_id, quantity, unit_price, amount, created_at
		FROM cart_lines WHERE user_id = $1 AND id = $2`

	findCartLineSQL = `SELECT id, user_id, product_id, variant_id, quantity, unit_price, amount, created_at
		FROM cart_lines WHERE user_id = $1 AND product_id = $2 AND variant_id = $3`

	insertCartLineSQL = `INSERT INTO cart_lines (id, user_id, product_id, variant_id, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateCartLineSQL = `UPDATE cart_lines SET quantity = $3, unit_price = $4, amount = $5
		WHERE user_id = $1 AND id = $2`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`
	clearCartLinesSQL = `DELETE FROM cart_lines WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListByUser returns the user's cart lines in insertion order.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// GetByID returns a single line owned by the user.
func (r *CartRepository) GetByID(ctx context.Context, userID, lineID string) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, getCartLineSQL, userID, lineID)
	if err != nil {
		return nil, fmt.Errorf("getting cart line %q: %w", lineID, err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting cart line %q: %w", lineID, err)
	}
	return &l, nil
}

// FindLine returns the user's line for a product/variant pair.
func (r *CartRepository) FindLine(ctx context.Context, userID, productID, variantID string) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, findCartLineSQL, userID, productID, variantID)
	if err != nil {
		return nil, fmt.Errorf("finding cart line: %w", err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("finding cart line: %w", err)
	}
	return &l, nil
}

// Create persists a new cart line.
func (r *CartRepository) Create(ctx context.Context, l *cart.Line) error {
	_, err := r.pool.Exec(ctx, insertCartLineSQL,
		l.ID, l.UserID, l.ProductID, l.VariantID, l.Quantity, l.UnitPrice, l.Amount)
	if err != nil {
		return fmt.Errorf("creating cart line: %w", err)
	}
	return nil
}

// Update stores a line's new quantity and repriced snapshot.
func (r *CartRepository) Update(ctx context.Context, l *cart.Line) error {
	tag, err := r.pool.Exec(ctx, updateCartLineSQL,
		l.UserID, l.ID, l.Quantity, l.UnitPrice, l.Amount)
	if err != nil {
		return fmt.Errorf("updating cart line %q: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Delete removes a single line owned by the user.
func (r *CartRepository) Delete(ctx context.Context, userID, lineID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartLineSQL, userID, lineID)
	if err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Clear removes all of the user's cart lines.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartLinesSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.VariantID,
		&l.Quantity, &l.UnitPrice, &l.Amount, &l.CreatedAt)
	return l, err
}
