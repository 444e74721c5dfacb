package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// Statuses lists every status an order may hold, in lifecycle order.
var Statuses = []Status{StatusPending, StatusShipped, StatusDelivered}

// ErrNotFound is returned when no order matches the requested identifier.
var ErrNotFound = errors.New("order not found")

// InvalidStatusError reports a status value outside the enumerated set.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// ParseStatus normalizes s (trimmed, lower-cased) and checks it against the
// enumerated statuses.
func ParseStatus(s string) (Status, error) {
	v := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if v == st {
			return v, nil
		}
	}
	return "", &InvalidStatusError{Value: s}
}

// CanTransition reports whether an order in status from may be moved to
// status to. Any enumerated status may follow any other, including moving a
// delivered order back to pending.
func CanTransition(from, to Status) bool {
	return from.valid() && to.valid()
}

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

// CartLine is a client-supplied line referencing a product by name. It only
// exists while an order is being placed.
type CartLine struct {
	ProductName string
	Quantity    int
}

// LineItem is a persisted order line referencing a product by identifier.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order is a placed customer order. Total is fixed at creation time and is
// never recomputed from the catalog afterwards.
type Order struct {
	ID        string
	OwnerID   string
	Items     []LineItem
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	FindByOwner(ctx context.Context, ownerID string) ([]Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	FindByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus sets the status and the updated timestamp in a single write
	// and returns the resulting order, or ErrNotFound. The stored timestamp
	// is the later of at and the previous value plus one microsecond.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Order, error)
}

// Catalog is the part of the product store needed to price a cart.
type Catalog interface {
	// GetByNames returns the products whose names exactly match any of names.
	// Names with no match are simply absent from the result.
	GetByNames(ctx context.Context, names []string) ([]product.Product, error)
}
