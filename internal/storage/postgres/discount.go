package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/domain/promotion"
)

// Eligibility (active, live window, targeting) is filtered in SQL; priority
// selection stays in the promotion engine where it is unit-testable.
const findActiveDiscountsSQL = `SELECT id, title, discount_type, value, starts_at, ends_at,
		active, category_ids, product_ids, priority, created_at
	FROM discounts
	WHERE active
	  AND starts_at <= $3 AND ends_at >= $3
	  AND ($1 = ANY(product_ids) OR ($2 <> '' AND $2 = ANY(category_ids)))
	ORDER BY priority DESC, created_at DESC`

var _ promotion.DiscountRepository = (*DiscountRepository)(nil)

// DiscountRepository implements promotion.DiscountRepository backed by
// PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindActiveFor returns discounts live at now that target the product or its
// category.
func (r *DiscountRepository) FindActiveFor(ctx context.Context, productID, categoryID string, now time.Time) ([]promotion.Discount, error) {
	rows, err := r.pool.Query(ctx, findActiveDiscountsSQL, productID, categoryID, now)
	if err != nil {
		return nil, fmt.Errorf("finding discounts for product %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

func scanDiscount(row pgx.CollectableRow) (promotion.Discount, error) {
	var d promotion.Discount
	err := row.Scan(&d.ID, &d.Title, &d.Type, &d.Value, &d.StartsAt, &d.EndsAt,
		&d.Active, &d.CategoryIDs, &d.ProductIDs, &d.Priority, &d.CreatedAt)
	return d, err
}
