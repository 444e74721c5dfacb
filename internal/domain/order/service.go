package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/storefront/internal/domain/product"
)

const instrumentationName = "github.com/xenking/storefront/internal/domain/order"

// Sentinel errors for order validation.
var (
	ErrEmptyCart = errors.New("cart must contain at least one line")
)

// ProductNotFoundError indicates a cart line names a product that is not in
// the catalog.
type ProductNotFoundError struct {
	Name string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with name %s not found", e.Name)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductName string
	Quantity    int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s (got %d)", e.ProductName, e.Quantity)
}

// InvalidIDError indicates a malformed order identifier.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid order id %q", e.ID)
}

// TransitionError indicates a status change rejected by CanTransition.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets the meter provider used for order counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.meter = mp.Meter(instrumentationName)
	}
}

// WithClock overrides the time source used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service encapsulates order placement and status administration.
type Service struct {
	catalog Catalog
	orders  Repository

	now    func() time.Time
	tracer trace.Tracer
	meter  metric.Meter

	placed  metric.Int64Counter
	updated metric.Int64Counter
}

// NewService creates an order Service reading prices from catalog and
// persisting to orders.
func NewService(catalog Catalog, orders Repository, opts ...Option) *Service {
	s := &Service{
		catalog: catalog,
		orders:  orders,
		now:     time.Now,
		tracer:  tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:   metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.placed, err = s.meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders successfully placed"),
	); err != nil {
		s.placed = metricnoop.Int64Counter{}
	}
	if s.updated, err = s.meter.Int64Counter("storefront.orders.status_updates",
		metric.WithDescription("Order status changes applied"),
	); err != nil {
		s.updated = metricnoop.Int64Counter{}
	}

	return s
}

// PlaceOrder resolves every cart line against the catalog by exact product
// name, prices the cart at current catalog prices and persists a pending
// order owned by ownerID. Nothing is written unless every line resolves.
func (s *Service) PlaceOrder(ctx context.Context, ownerID string, lines []CartLine) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(lines))),
	)
	defer func() { endSpan(span, rerr) }()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	names := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductName: l.ProductName, Quantity: l.Quantity}
		}
		if _, ok := seen[l.ProductName]; ok {
			continue
		}
		seen[l.ProductName] = struct{}{}
		names = append(names, l.ProductName)
	}

	// Single catalog round-trip for the whole cart.
	found, err := s.catalog.GetByNames(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, "resolve products")
	}
	byName := make(map[string]product.Product, len(found))
	for _, p := range found {
		byName[p.Name] = p
	}

	// Duplicate names stay separate lines.
	items := make([]LineItem, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		p, ok := byName[l.ProductName]
		if !ok {
			return nil, &ProductNotFoundError{Name: l.ProductName}
		}
		items[i] = LineItem{ProductID: p.ID, Quantity: l.Quantity}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	o := &Order{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Items:     items,
		Total:     total.Round(2),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.placed.Add(ctx, 1)
	return o, nil
}

// ListAll returns every order in the store.
func (s *Service) ListAll(ctx context.Context) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListAll")
	defer func() { endSpan(span, rerr) }()

	orders, err := s.orders.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListByOwner returns the orders placed by ownerID. An owner without orders
// gets an empty, non-nil slice.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListByOwner")
	defer func() { endSpan(span, rerr) }()

	orders, err := s.orders.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list owner orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// Get returns a single order by identifier.
func (s *Service) Get(ctx context.Context, id string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Get")
	defer func() { endSpan(span, rerr) }()

	if err := validateID(id); err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// UpdateStatus moves the order to the requested status and refreshes its
// updated timestamp in one write. Unknown ids fail with ErrNotFound and
// leave the store untouched.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	if err := validateID(id); err != nil {
		return nil, err
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if !CanTransition(current.Status, status) {
		return nil, &TransitionError{From: current.Status, To: status}
	}

	// Updated timestamps never move backwards, even under clock skew.
	at := s.now().UTC().Truncate(time.Microsecond)
	if !at.After(current.UpdatedAt) {
		at = current.UpdatedAt.Add(time.Microsecond)
	}

	updated, err := s.orders.UpdateStatus(ctx, id, status, at)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update order status")
	}

	s.updated.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(status))))
	return updated, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &InvalidIDError{ID: id}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
