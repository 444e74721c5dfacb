package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const orderColumns = `id::text, owner_id, items, total, status, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (id, owner_id, items, total, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	selectOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE owner_id = $1 ORDER BY created_at DESC, id`

	selectAllOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	ORDER BY created_at DESC, id`

	selectOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	// Status and timestamp change together so readers never observe one
	// without the other.
	updateOrderStatusSQL = `UPDATE orders SET status = $2,
	updated_at = GREATEST($3::timestamptz, updated_at + interval '1 microsecond')
	WHERE id = $1 RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items are stored as a JSONB document inside the order row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert persists a new order in a single statement.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	if _, err := r.pool.Exec(ctx, insertOrderSQL,
		o.ID, o.OwnerID, itemsJSON, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// FindByOwner returns the orders placed by ownerID, newest first.
func (r *OrderRepository) FindByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, errors.Wrapf(err, "query orders of %q", ownerID)
	}
	orders, err := pgx.CollectRows(rows, collectOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

// FindAll returns every order, newest first.
func (r *OrderRepository) FindAll(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, selectAllOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, collectOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

// FindByID returns the order with the given id or order.ErrNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrderByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return o, nil
}

// UpdateStatus sets status and updated_at in one statement and returns the
// updated row, or order.ErrNotFound when no row matches. The stored stamp
// is at least 1µs past the previous one, even when a concurrent update
// landed after the caller read the order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, at time.Time) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, updateOrderStatusSQL, id, string(status), at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update order %q", id)
	}
	return o, nil
}

func collectOrder(row pgx.CollectableRow) (order.Order, error) {
	o, err := scanOrder(row)
	if err != nil {
		return order.Order{}, err
	}
	return *o, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &itemsJSON, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrapf(err, "unmarshal items of order %q", o.ID)
	}
	o.Status = order.Status(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
