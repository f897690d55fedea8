package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, category_id, list_price, discount_percent, stock, has_variants, active
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, category_id, list_price, discount_percent, stock, has_variants, active
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, category_id, list_price, discount_percent, stock, has_variants, active
		FROM products WHERE id = ANY($1)`

	getVariantsSQL = `SELECT id, product_id, name, list_price, discount_percent, stock, active
		FROM product_variants WHERE product_id = ANY($1) ORDER BY product_id, position`

	reserveProductStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND NOT has_variants AND stock >= $2`

	releaseProductStockSQL = `UPDATE products SET stock = stock + $2
		WHERE id = $1 AND NOT has_variants`

	reserveVariantStockSQL = `UPDATE product_variants SET stock = stock - $3
		WHERE product_id = $1 AND id = $2 AND stock >= $3`

	releaseVariantStockSQL = `UPDATE product_variants SET stock = stock + $3
		WHERE product_id = $1 AND id = $2`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all products with their variants, ordered by ID.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return r.attachVariants(ctx, products)
}

// GetByID returns a single product, with variants, by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	withVariants, err := r.attachVariants(ctx, []catalog.Product{p})
	if err != nil {
		return nil, err
	}
	return &withVariants[0], nil
}

// GetByIDs returns products, with variants, matching any of the given IDs.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return r.attachVariants(ctx, products)
}

// ReserveStock atomically decrements stock for a product or variant. The
// check and decrement are one conditional UPDATE, so two concurrent
// reservations can never both succeed past the available quantity.
func (r *CatalogRepository) ReserveStock(ctx context.Context, productID, variantID string, qty int) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if variantID != "" {
		tag, err = r.pool.Exec(ctx, reserveVariantStockSQL, productID, variantID, qty)
	} else {
		tag, err = r.pool.Exec(ctx, reserveProductStockSQL, productID, qty)
	}
	if err != nil {
		return fmt.Errorf("reserving stock for product %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

// ReleaseStock returns previously reserved quantity, compensating a checkout
// attempt that failed after reservation.
func (r *CatalogRepository) ReleaseStock(ctx context.Context, productID, variantID string, qty int) error {
	var err error
	if variantID != "" {
		_, err = r.pool.Exec(ctx, releaseVariantStockSQL, productID, variantID, qty)
	} else {
		_, err = r.pool.Exec(ctx, releaseProductStockSQL, productID, qty)
	}
	if err != nil {
		return fmt.Errorf("releasing stock for product %q: %w", productID, err)
	}
	return nil
}

func (r *CatalogRepository) attachVariants(ctx context.Context, products []catalog.Product) ([]catalog.Product, error) {
	var ids []string
	index := make(map[string]*catalog.Product, len(products))
	for i := range products {
		if products[i].HasVariants {
			ids = append(ids, products[i].ID)
		}
		index[products[i].ID] = &products[i]
	}
	if len(ids) == 0 {
		return products, nil
	}

	rows, err := r.pool.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v         catalog.Variant
			productID string
		)
		if err := rows.Scan(&v.ID, &productID, &v.Name, &v.ListPrice,
			&v.DiscountPercent, &v.Stock, &v.Active); err != nil {
			return nil, fmt.Errorf("scanning variant: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting variants: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &p.ListPrice,
		&p.DiscountPercent, &p.Stock, &p.HasVariants, &p.Active)
	return p, err
}
