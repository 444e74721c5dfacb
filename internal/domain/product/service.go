package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Service implements catalog administration on top of a Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a catalog Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates d and stores it as a new product.
func (s *Service) Create(ctx context.Context, d Draft) (*Product, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	p := &Product{
		ID:            uuid.New().String(),
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		Category:      d.Category,
		StockQuantity: d.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, ErrDuplicateName
		}
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// List returns one page of the catalog and the total product count.
func (s *Service) List(ctx context.Context, page Page) ([]Product, int, error) {
	items, total, err := s.repo.List(ctx, page.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return items, total, nil
}

// GetByName looks a product up by exact name.
func (s *Service) GetByName(ctx context.Context, name string) (*Product, error) {
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// Update applies patch to the product and refreshes its updated timestamp
// in the same write.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, id, patch, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrDuplicateName):
			return nil, ErrDuplicateName
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Delete removes a product from the catalog. Existing orders keep their
// line items and totals.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete product")
	}
	return nil
}
