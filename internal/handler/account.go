package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/auth"
)

type credentials struct {
	Username string
	Email    string
	Password string
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "username":
			c.Username, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "password":
			c.Password, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return c, err
}

// register creates a customer account. The role is never taken from the
// request body; administrators are provisioned out of band.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	u, err := h.accounts.Register(r.Context(), auth.RegisterRequest{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
		Role:     auth.RoleCustomer,
	})
	if err != nil {
		fail(w, r, err, mapAuthError)
		return
	}
	var e jx.Encoder
	encodeUser(&e, *u)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	s, err := h.accounts.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		fail(w, r, err, mapAuthError)
		return
	}
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("message", func(e *jx.Encoder) { e.Str("Login successful") })
		e.Field("token", func(e *jx.Encoder) { e.Str(s.Token) })
		e.Field("expires_at", func(e *jx.Encoder) { encodeTime(e, s.ExpiresAt) })
		e.Field("role", func(e *jx.Encoder) { e.Str(string(s.Identity.Role)) })
	})
	writeJSON(w, http.StatusOK, &e)
}
