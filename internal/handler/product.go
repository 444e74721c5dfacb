package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

func decodeDraft(w http.ResponseWriter, r *http.Request) (product.Draft, error) {
	var d product.Draft
	hasPrice := false
	err := decodeObject(w, r, func(dec *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			d.Name, err = dec.Str()
		case "description":
			d.Description, err = dec.Str()
		case "category":
			d.Category, err = dec.Str()
		case "price":
			d.Price, err = decodeDecimal(dec)
			hasPrice = true
		case "stock_quantity":
			d.StockQuantity, err = dec.Int()
		default:
			return dec.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return d, err
	}
	if !hasPrice {
		return d, badRequest("price is required")
	}
	return d, nil
}

// decodePatch reads a partial product. Absent and null fields are left
// unchanged.
func decodePatch(w http.ResponseWriter, r *http.Request) (product.Patch, error) {
	var p product.Patch
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if null, err := isNull(d); err != nil || null {
			return err
		}
		switch key {
		case "name", "description", "category":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			switch key {
			case "name":
				p.Name = &s
			case "description":
				p.Description = &s
			default:
				p.Category = &s
			}
		case "price":
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, key)
			}
			p.Price = &v
		case "stock_quantity":
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, key)
			}
			p.StockQuantity = &n
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if p.Empty() {
		return p, badRequest("no fields to update")
	}
	return p, nil
}

// pageQuery reads ?page=&limit=. Missing values fall back to the defaults.
func pageQuery(r *http.Request) (product.Page, error) {
	var page product.Page
	q := r.URL.Query()
	for key, dst := range map[string]*int{"page": &page.Page, "limit": &page.Limit} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return page, badRequest("%s must be a positive integer", key)
		}
		*dst = n
	}
	return page.Normalize(), nil
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), d)
	if err != nil {
		fail(w, r, err, mapProductError)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, total, err := h.products.List(r.Context(), page)
	if err != nil {
		fail(w, r, err, mapProductError)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range items {
					encodeProduct(e, p)
				}
			})
		})
		e.Field("pagination", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("totalProducts", func(e *jx.Encoder) { e.Int(total) })
				e.Field("totalPages", func(e *jx.Encoder) { e.Int(page.TotalPages(total)) })
				e.Field("currentPage", func(e *jx.Encoder) { e.Int(page.Page) })
				e.Field("perPage", func(e *jx.Encoder) { e.Int(page.Limit) })
			})
		})
	})
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByName(r.Context(), r.PathValue("name"))
	if err != nil {
		fail(w, r, err, mapProductError)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.products.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		fail(w, r, err, mapProductError)
		return
	}
	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, mapProductError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
