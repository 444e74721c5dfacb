package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// apiError is an error with a known HTTP status and client-facing message.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) *apiError {
	return &apiError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// errorMapper classifies a domain error, returning nil when it does not
// recognize err.
type errorMapper func(err error) *apiError

func mapOrderError(err error) *apiError {
	var (
		notFound *order.ProductNotFoundError
		qty      *order.InvalidQuantityError
		id       *order.InvalidIDError
		status   *order.InvalidStatusError
		move     *order.TransitionError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		return &apiError{Code: http.StatusNotFound, Message: "Order not found"}
	case errors.Is(err, order.ErrEmptyCart),
		errors.As(err, &notFound),
		errors.As(err, &qty),
		errors.As(err, &id),
		errors.As(err, &status),
		errors.As(err, &move):
		return &apiError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	return nil
}

func mapProductError(err error) *apiError {
	var invalid *product.ValidationError
	switch {
	case errors.Is(err, product.ErrNotFound):
		return &apiError{Code: http.StatusNotFound, Message: "Product not found"}
	case errors.Is(err, product.ErrDuplicateName):
		return &apiError{Code: http.StatusConflict, Message: err.Error()}
	case errors.As(err, &invalid):
		return &apiError{Code: http.StatusBadRequest, Message: invalid.Error()}
	}
	return nil
}

func mapAuthError(err error) *apiError {
	var (
		account *auth.InvalidAccountError
		role    *auth.UnknownRoleError
	)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return &apiError{Code: http.StatusConflict, Message: "User already registered"}
	case errors.Is(err, auth.ErrInvalidLogin):
		return &apiError{Code: http.StatusUnauthorized, Message: "Invalid email or password"}
	case errors.As(err, &account), errors.As(err, &role):
		return &apiError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	return nil
}

// fail writes the response for err. Unclassified errors become a 500 that
// carries the underlying message and are logged.
func fail(w http.ResponseWriter, r *http.Request, err error, mappers ...errorMapper) {
	var known *apiError
	if errors.As(err, &known) {
		writeErrorBody(w, known.Code, known.Message)
		return
	}
	for _, m := range mappers {
		if e := m(err); e != nil {
			writeErrorBody(w, e.Code, e.Message)
			return
		}
	}
	zctx.From(r.Context()).Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeErrorBody(w, http.StatusInternalServerError, err.Error())
}
