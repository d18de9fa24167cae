package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/clients"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

// ProductCatalog resolves the authoritative merch price at add time.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (clients.Product, error)
}

type CheckoutRunner interface {
	Checkout(ctx context.Context, store *cart.Store, customer checkout.Customer) (checkout.Result, error)
}

type Deps struct {
	Sessions *cart.Sessions
	Checkout CheckoutRunner
	// Catalog is optional; without it the client supplies merch prices.
	Catalog ProductCatalog
	Targets []clients.HealthTarget
	Logger  *zap.Logger
}

type Handler struct {
	sessions *cart.Sessions
	checkout CheckoutRunner
	catalog  ProductCatalog
	targets  []clients.HealthTarget
	logger   *zap.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: d.Sessions,
		checkout: d.Checkout,
		catalog:  d.Catalog,
		targets:  d.Targets,
		logger:   logger,
	}
}

func (h *Handler) store(r *http.Request) *cart.Store {
	return h.sessions.Get(r.Context(), middleware.GetSessionID(r.Context()))
}

// peek serves read-only routes without opening a store for the session.
func (h *Handler) peek(r *http.Request) cart.Snapshot {
	return h.sessions.Peek(r.Context(), middleware.GetSessionID(r.Context()))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	results := clients.CheckAll(r.Context(), h.targets)

	status := "ok"
	for _, res := range results {
		if !res.OK {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"service":  "storefront",
		"sessions": h.sessions.Len(),
		"upstream": results,
	})
}
