package checkout

import (
	"errors"
	"strings"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

var (
	ErrEmptyCart  = errors.New("cart is empty")
	ErrInProgress = errors.New("checkout already in progress")
)

// DefaultFailureMessage is shown when a failed submission carries no
// message of its own.
const DefaultFailureMessage = "Order submission failed. Please try again."

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid customer details: " + strings.Join(parts, "; ")
}

// UserMessager is implemented by errors that carry a message fit to show
// to the shopper, such as an order API rejection.
type UserMessager interface {
	UserMessage() string
}

// Error reports a checkout in which at least one order group failed.
// Removed lists the kinds whose orders were accepted and therefore taken
// out of the cart before the failure.
type Error struct {
	Failed  cart.Kind
	Removed []cart.Kind
	Cause   error
}

func (e *Error) Error() string {
	msg := DefaultFailureMessage
	var um UserMessager
	if errors.As(e.Cause, &um) {
		if m := strings.TrimSpace(um.UserMessage()); m != "" {
			msg = m
		}
	}
	if len(e.Removed) == 0 {
		return msg
	}

	return msg + " Items already ordered (" + strings.Join(kindStrings(e.Removed), ", ") + ") were removed from the cart."
}

func (e *Error) Unwrap() error { return e.Cause }

// Partial reports whether some of the cart was ordered before the failure.
func (e *Error) Partial() bool { return len(e.Removed) > 0 }
