package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// decodeCart reads {"lines":[{"product_name","quantity"}]}. The legacy
// "product_list" key is accepted as an alias of "lines".
func decodeCart(w http.ResponseWriter, r *http.Request) ([]order.CartLine, error) {
	var (
		lines []order.CartLine
		seen  bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "lines", "product_list":
			seen = true
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeCartLine(d)
				if err != nil {
					return err
				}
				lines = append(lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, badRequest("lines is required")
	}
	return lines, nil
}

func decodeCartLine(d *jx.Decoder) (order.CartLine, error) {
	var line order.CartLine
	hasQty := false
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_name":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "product_name")
			}
			line.ProductName = s
		case "quantity":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			line.Quantity = n
			hasQty = true
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return line, err
	}
	if line.ProductName == "" {
		return line, badRequest("product_name is required")
	}
	if !hasQty {
		return line, badRequest("quantity is required for product %s", line.ProductName)
	}
	return line, nil
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	lines, err := decodeCart(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.PlaceOrder(r.Context(), caller(r).Subject, lines)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, *o)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	var e jx.Encoder
	encodeOrders(&e, orders)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByOwner(r.Context(), caller(r).Subject)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	if len(orders) == 0 {
		writeMessage(w, http.StatusOK, "No orders available")
		return
	}
	var e jx.Encoder
	encodeOrders(&e, orders)
	writeJSON(w, http.StatusOK, &e)
}

// getOrder serves a single order to its owner or an admin. Other callers
// get the same 404 as for an unknown id.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	if id := caller(r); !id.IsAdmin() && o.OwnerID != id.Subject {
		fail(w, r, order.ErrNotFound, mapOrderError)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, *o)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var (
		status string
		seen   bool
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "status", "order_status":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			status, seen = s, true
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !seen {
		fail(w, r, badRequest("status is required"))
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		fail(w, r, err, mapOrderError)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, *o)
	writeJSON(w, http.StatusOK, &e)
}
