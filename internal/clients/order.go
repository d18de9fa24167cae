package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
)

const (
	DefaultCanvasOrderPath = "/api/orders/canvas"
	DefaultMerchOrderPath  = "/api/orders/products"
)

// OrderClient posts order groups to the external order API, one endpoint
// per cart kind.
type OrderClient struct {
	c     *Client
	paths map[cart.Kind]string
}

func NewOrderClient(c *Client, canvasPath, merchPath string) *OrderClient {
	if canvasPath == "" {
		canvasPath = DefaultCanvasOrderPath
	}
	if merchPath == "" {
		merchPath = DefaultMerchOrderPath
	}
	return &OrderClient{c: c, paths: map[cart.Kind]string{
		cart.KindCanvas:  canvasPath,
		cart.KindProduct: merchPath,
	}}
}

func (oc *OrderClient) Submit(ctx context.Context, kind cart.Kind, req checkout.OrderRequest) (checkout.Receipt, error) {
	path, ok := oc.paths[kind]
	if !ok {
		return checkout.Receipt{}, fmt.Errorf("no order endpoint for kind %q", kind)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return checkout.Receipt{}, fmt.Errorf("encode order: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")

	resp, err := oc.c.Do(ctx, http.MethodPost, path, "", bytes.NewReader(body), headers)
	if err != nil {
		return checkout.Receipt{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return checkout.Receipt{}, newAPIError(oc.c.Name, resp)
	}
	return decodeReceipt(resp.Body), nil
}

// decodeReceipt accepts {"orderId"}, {"id"} or {"order": {"_id"}}; the order
// API's body is not ours to define, and an unreadable body is still a success.
func decodeReceipt(r io.Reader) checkout.Receipt {
	var body struct {
		OrderID string `json:"orderId"`
		ID      string `json:"id"`
		Order   struct {
			ID  string `json:"id"`
			OID string `json:"_id"`
		} `json:"order"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return checkout.Receipt{}
	}
	for _, id := range []string{body.OrderID, body.ID, body.Order.ID, body.Order.OID} {
		if id != "" {
			return checkout.Receipt{OrderID: id}
		}
	}
	return checkout.Receipt{}
}
