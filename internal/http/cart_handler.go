package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/clients"
)

type CartView struct {
	Items    []cart.Item `json:"items"`
	Count    int         `json:"count"`
	Quantity int         `json:"quantity"`
	Totals   cart.Totals `json:"totals"`
}

func viewOf(s *cart.Store) CartView {
	return viewOfSnapshot(s.Snapshot())
}

func viewOfSnapshot(snap cart.Snapshot) CartView {
	return CartView{
		Items:    snap.Items,
		Count:    len(snap.Items),
		Quantity: snap.Quantity,
		Totals:   snap.Totals,
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOfSnapshot(h.peek(r)))
}

func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.peek(r).Totals)
}

type addItemRequest struct {
	Kind     cart.Kind        `json:"kind"`
	ID       string           `json:"id"`
	Category cart.Category    `json:"category"`
	Name     string           `json:"name"`
	Size     string           `json:"size"`
	Image    string           `json:"image"`
	Price    *decimal.Decimal `json:"price"`
	Qty      int              `json:"qty"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item := cart.Item{
		ID:       strings.TrimSpace(req.ID),
		Kind:     req.Kind,
		Category: req.Category,
		Name:     req.Name,
		Size:     strings.TrimSpace(req.Size),
		Image:    req.Image,
	}

	switch item.Kind {
	case cart.KindCanvas:
		// canvases are priced by the tier table, never by the client
		if item.Size == "" {
			writeError(w, r, http.StatusBadRequest, "canvas size is required")
			return
		}
	case cart.KindProduct:
		if item.Size == "" {
			item.Size = cart.SizeOne
		}
		item.Category = ""
		item.Price = req.Price
		if h.catalog != nil {
			status, err := h.resolveProduct(r, &item)
			if err != nil {
				writeError(w, r, status, err.Error())
				return
			}
		}
	}

	if err := item.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s := h.store(r)
	// Add treats a missing or non-positive qty as 1
	s.Add(item, req.Qty)
	writeJSON(w, http.StatusOK, viewOf(s))
}

// resolveProduct overwrites the client's price with the catalog's.
func (h *Handler) resolveProduct(r *http.Request, item *cart.Item) (int, error) {
	p, err := h.catalog.GetProduct(r.Context(), item.ID)
	switch {
	case errors.Is(err, clients.ErrProductNotFound):
		return http.StatusNotFound, fmt.Errorf("unknown product %q", item.ID)
	case err != nil:
		h.logger.Warn("catalog lookup failed", zap.String("product_id", item.ID), zap.Error(err))
		return http.StatusBadGateway, errors.New("catalog unavailable")
	}

	if len(p.Sizes) > 0 && item.Size != cart.SizeOne && !slices.Contains(p.Sizes, item.Size) {
		return http.StatusBadRequest, fmt.Errorf("size %q is not offered for %q", item.Size, item.ID)
	}
	price := p.Price
	item.Price = &price
	if item.Name == "" {
		item.Name = p.Name
	}
	if item.Image == "" {
		item.Image = p.Image
	}
	return 0, nil
}

func itemKey(r *http.Request) (cart.Key, error) {
	var parts [3]string
	for i, name := range []string{"kind", "id", "size"} {
		v, err := url.PathUnescape(chi.URLParam(r, name))
		if err != nil {
			return cart.Key{}, fmt.Errorf("malformed %s", name)
		}
		parts[i] = v
	}
	k := cart.Key{Kind: cart.Kind(parts[0]), ID: parts[1], Size: parts[2]}
	if !k.Kind.Valid() {
		return cart.Key{}, fmt.Errorf("%w: %q", cart.ErrInvalidKind, k.Kind)
	}
	return k, nil
}

type setQtyRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req setQtyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.store(r)
	if !s.SetQty(key, req.Qty) {
		writeError(w, r, http.StatusNotFound, "item not in cart")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s := h.store(r)
	s.Remove(key)
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	var kinds []cart.Kind
	if v := r.URL.Query().Get("kind"); v != "" {
		k := cart.Kind(v)
		if !k.Valid() {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", v))
			return
		}
		kinds = append(kinds, k)
	}

	s := h.store(r)
	s.Clear(kinds...)
	writeJSON(w, http.StatusOK, viewOf(s))
}
