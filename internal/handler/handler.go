// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// OrderService is the order workflow used by the transport.
type OrderService interface {
	PlaceOrder(ctx context.Context, ownerID string, lines []order.CartLine) (*order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*order.Order, error)
}

// ProductService is the catalog administration used by the transport.
type ProductService interface {
	Create(ctx context.Context, d product.Draft) (*product.Product, error)
	List(ctx context.Context, page product.Page) ([]product.Product, int, error)
	GetByName(ctx context.Context, name string) (*product.Product, error)
	Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

// AccountService registers accounts and logs them in.
type AccountService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// Handler serves the storefront REST API.
type Handler struct {
	orders   OrderService
	products ProductService
	accounts AccountService
}

// New creates a Handler.
func New(orders OrderService, products ProductService, accounts AccountService) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		accounts: accounts,
	}
}

// Routes mounts the API routes on mux. Every route except registration
// and login is behind Authenticate; admin routes also pass RequireRole.
func (h *Handler) Routes(mux *http.ServeMux, v Verifier) {
	authed := func(f http.HandlerFunc) http.Handler {
		return httpmiddleware.Wrap(f, Authenticate(v))
	}
	admin := func(f http.HandlerFunc) http.Handler {
		return httpmiddleware.Wrap(f, Authenticate(v), RequireRole(auth.RoleAdmin))
	}

	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/login", h.login)

	mux.Handle("POST /api/products", admin(h.createProduct))
	mux.Handle("GET /api/products", authed(h.listProducts))
	mux.Handle("GET /api/products/{name}", authed(h.getProduct))
	mux.Handle("PUT /api/products/{id}", admin(h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", admin(h.deleteProduct))

	mux.Handle("POST /api/orders", authed(h.placeOrder))
	mux.Handle("GET /api/orders", admin(h.listOrders))
	mux.Handle("GET /api/orders/mine", authed(h.myOrders))
	mux.Handle("GET /api/orders/{id}", authed(h.getOrder))
	mux.Handle("PUT /api/orders/{id}/status", admin(h.updateOrderStatus))
}

// caller returns the identity stored by Authenticate. Routes are only
// reachable through it, so a missing identity is a wiring bug.
func caller(r *http.Request) auth.Identity {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		panic("handler: route served without Authenticate")
	}
	return id
}
