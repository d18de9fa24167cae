package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	SessionCookie    string
	SecureCookie     bool
	Logger           *zap.Logger
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(opts.CORSAllowOrigins))

	r.Get("/health", h.Health)

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(middleware.Session(opts.SessionCookie, opts.SecureCookie))

		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/totals", h.GetTotals)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{kind}/{id}/{size}", h.SetQty)
		r.Delete("/items/{kind}/{id}/{size}", h.RemoveItem)
		r.Post("/checkout", h.Checkout)
	})

	return r
}
