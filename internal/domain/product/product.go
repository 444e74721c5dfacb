package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateName is returned when a product name is already taken.
	ErrDuplicateName = errors.New("product name already exists")
)

// Pagination bounds for catalog listing.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      string
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidationError reports an invalid product field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Draft holds the fields of a product to create.
type Draft struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      string
	StockQuantity int
}

// Validate checks required fields and non-negative amounts.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if d.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if d.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Reason: "must not be negative"}
	}
	return nil
}

// Patch holds a partial product update. Nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Category      *string
	StockQuantity *int
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.Category == nil && p.StockQuantity == nil
}

// Validate applies the Draft rules to the fields present in the patch.
func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.Price != nil && p.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.StockQuantity != nil && *p.StockQuantity < 0 {
		return &ValidationError{Field: "stock_quantity", Reason: "must not be negative"}
	}
	return nil
}

// Page selects a window of the catalog. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// Normalize replaces out-of-range values with the defaults.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns the page count for total items at this page size.
func (p Page) TotalPages(total int) int {
	if p.Limit < 1 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Repository defines catalog persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	GetByNames(ctx context.Context, names []string) ([]Product, error)
	// List returns the products on the page together with the total count.
	List(ctx context.Context, page Page) ([]Product, int, error)
	Update(ctx context.Context, id string, patch Patch, at time.Time) (*Product, error)
	Delete(ctx context.Context, id string) error
}
