package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/cart"
)

// OrderRequest is the body the order API accepts for one group:
// { customerDetails, cart: [...] }.
type OrderRequest struct {
	CustomerDetails Customer    `json:"customerDetails"`
	Cart            []OrderLine `json:"cart"`
}

type OrderLine struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Size     string           `json:"size"`
	Image    string           `json:"image,omitempty"`
	Quantity int              `json:"quantity"`
	Category cart.Category    `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// Receipt is whatever the order API tells us about an accepted order.
type Receipt struct {
	OrderID string `json:"orderId,omitempty"`
}

// Submitter sends one order group to the endpoint for its kind.
type Submitter interface {
	Submit(ctx context.Context, kind cart.Kind, req OrderRequest) (Receipt, error)
}

// Submission describes an accepted order group.
type Submission struct {
	CartKey     string
	Kind        cart.Kind
	Receipt     Receipt
	Customer    Customer
	Lines       []OrderLine
	Amount      decimal.Decimal
	SubmittedAt time.Time
}

// Notifier is told about every accepted group. Its errors are logged and
// never affect the checkout outcome.
type Notifier interface {
	OrderSubmitted(ctx context.Context, sub Submission) error
}

// Partition splits items by kind, preserving cart order in each group.
func Partition(items []cart.Item) (canvas, merch []cart.Item) {
	for _, it := range items {
		switch it.Kind {
		case cart.KindCanvas:
			canvas = append(canvas, it)
		case cart.KindProduct:
			merch = append(merch, it)
		}
	}
	return canvas, merch
}

func orderLines(items []cart.Item) []OrderLine {
	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		line := OrderLine{
			ID:       it.ID,
			Name:     it.Name,
			Size:     it.Size,
			Image:    it.Image,
			Quantity: it.Qty,
		}
		switch it.Kind {
		case cart.KindCanvas:
			line.Category = it.Category
		case cart.KindProduct:
			if it.Price != nil {
				p := *it.Price
				line.Price = &p
			}
		}
		lines = append(lines, line)
	}
	return lines
}
