package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

type CheckoutResponse struct {
	Submitted []cart.Kind                    `json:"submitted"`
	Receipts  map[cart.Kind]checkout.Receipt `json:"receipts"`
	Cart      CartView                       `json:"cart"`
}

type CheckoutErrorResponse struct {
	Error         string                `json:"error"`
	CorrelationID string                `json:"correlationId,omitempty"`
	Fields        []checkout.FieldError `json:"fields,omitempty"`
	Partial       bool                  `json:"partial,omitempty"`
	Removed       []cart.Kind           `json:"removed,omitempty"`
	Cart          *CartView             `json:"cart,omitempty"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var customer checkout.Customer
	if err := decodeJSON(w, r, &customer); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.store(r)
	res, err := h.checkout.Checkout(r.Context(), s, customer)
	if err == nil {
		writeJSON(w, http.StatusOK, CheckoutResponse{Submitted: res.Submitted, Receipts: res.Receipts, Cart: viewOf(s)})
		return
	}

	body := CheckoutErrorResponse{Error: err.Error(), CorrelationID: middleware.GetCorrelationID(r.Context())}

	var verr *checkout.ValidationError
	var cerr *checkout.Error
	switch {
	case errors.As(err, &verr):
		body.Fields = verr.Fields
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, checkout.ErrInProgress):
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &cerr):
		view := viewOf(s)
		body.Partial = cerr.Partial()
		body.Removed = cerr.Removed
		body.Cart = &view
		writeJSON(w, http.StatusBadGateway, body)
	default:
		h.logger.Error("checkout failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
