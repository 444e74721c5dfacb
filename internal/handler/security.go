package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Verifier checks a raw bearer credential and returns the identity it
// asserts.
type Verifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Authenticate rejects requests without a valid bearer credential and
// stores the verified identity in the request context.
//
// A missing credential and an invalid one are both 401 but carry different
// messages.
func Authenticate(v Verifier) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present := bearerToken(r)
			if !present {
				writeErrorBody(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
				return
			}
			id, err := v.Verify(raw)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidCredential) {
					zctx.From(r.Context()).Warn("Unexpected verifier error", zap.Error(err))
				}
				writeErrorBody(w, http.StatusUnauthorized, auth.ErrInvalidCredential.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole admits only identities holding one of roles. It must run after
// Authenticate; a request with no identity is rejected with 401.
func RequireRole(roles ...auth.Role) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeErrorBody(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
				return
			}
			if !id.HasRole(roles...) {
				writeErrorBody(w, http.StatusForbidden, auth.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from the Authorization header. A
// header with a different scheme counts as present so it fails verification
// instead of looking anonymous.
func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, token, _ := strings.Cut(h, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return h, true
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
