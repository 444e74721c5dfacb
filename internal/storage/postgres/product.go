package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `id::text, name, description, price, category, stock_quantity, created_at, updated_at`

const (
	insertProductSQL = `INSERT INTO products
	(id, name, description, price, category, stock_quantity, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectProductByIDSQL    = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	selectProductByNameSQL  = `SELECT ` + productColumns + ` FROM products WHERE name = $1`
	selectProductsByNameSQL = `SELECT ` + productColumns + ` FROM products WHERE name = ANY($1)`

	countProductsSQL = `SELECT count(*) FROM products`
	listProductsSQL  = `SELECT ` + productColumns + ` FROM products
	ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	updateProductSQL = `UPDATE products SET
		name           = COALESCE($2, name),
		description    = COALESCE($3, description),
		price          = COALESCE($4, price),
		category       = COALESCE($5, category),
		stock_quantity = COALESCE($6, stock_quantity),
		updated_at     = $7
	WHERE id = $1 RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

const productsNameKey = "products_name_key"

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product. A taken name yields product.ErrDuplicateName.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if _, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.StockQuantity, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err, productsNameKey) {
			return product.ErrDuplicateName
		}
		return errors.Wrapf(err, "insert product %q", p.Name)
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, selectProductByIDSQL, id)
}

// GetByName returns the product whose name exactly matches name.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*product.Product, error) {
	return r.getOne(ctx, selectProductByNameSQL, name)
}

// GetByNames returns all products whose names are in names, in a single
// query. Unknown names are omitted.
func (r *ProductRepository) GetByNames(ctx context.Context, names []string) ([]product.Product, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, selectProductsByNameSQL, names)
	if err != nil {
		return nil, errors.Wrap(err, "query products by name")
	}
	products, err := pgx.CollectRows(rows, collectProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// List returns one page of products, newest first, with the total count.
func (r *ProductRepository) List(ctx context.Context, page product.Page) ([]product.Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countProductsSQL).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	rows, err := r.pool.Query(ctx, listProductsSQL, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, collectProduct)
	if err != nil {
		return nil, 0, errors.Wrap(err, "scan products")
	}
	return products, total, nil
}

// Update applies the non-nil fields of patch and stamps updated_at in the
// same statement.
func (r *ProductRepository) Update(ctx context.Context, id string, patch product.Patch, at time.Time) (*product.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, updateProductSQL,
		id, patch.Name, patch.Description, patch.Price, patch.Category, patch.StockQuantity, at,
	))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, product.ErrNotFound
		case isUniqueViolation(err, productsNameKey):
			return nil, product.ErrDuplicateName
		}
		return nil, errors.Wrapf(err, "update product %q", id)
	}
	return p, nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	return p, nil
}

func collectProduct(row pgx.CollectableRow) (product.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		return product.Product{}, err
	}
	return *p, nil
}

func scanProduct(row pgx.Row) (*product.Product, error) {
	var p product.Product
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
