package cart

import "github.com/shopspring/decimal"

// Canvas price table. Standard canvases are tiered on the total number of
// standard units in the cart; pair and triple sets are flat per unit.
var (
	standardTiers = []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(220),
		decimal.NewFromInt(400),
		decimal.NewFromInt(550),
	}
	standardExtraUnit = decimal.NewFromInt(180)

	PairUnitPrice   = decimal.NewFromInt(390)
	TripleUnitPrice = decimal.NewFromInt(550)
)

// StandardTier returns the price of n standard canvases bought together.
func StandardTier(n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	last := len(standardTiers) - 1
	if n <= last {
		return standardTiers[n]
	}
	extra := decimal.NewFromInt(int64(n - last))
	return standardTiers[last].Add(extra.Mul(standardExtraUnit))
}

// ShippingRule computes shipping for a priced cart.
type ShippingRule func(items []Item, subtotal decimal.Decimal) decimal.Decimal

func FreeShipping([]Item, decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Units    int             `json:"units"`
	Amount   decimal.Decimal `json:"amount"`
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// breakdown rows are always reported in this order
var breakdownOrder = []string{
	string(CategoryStandard),
	string(CategoryPair),
	string(CategoryTriple),
	string(KindProduct),
}

type Pricer struct {
	Shipping ShippingRule
}

func NewPricer(shipping ShippingRule) Pricer {
	if shipping == nil {
		shipping = FreeShipping
	}
	return Pricer{Shipping: shipping}
}

// Price is a pure function of the item set. Items with an unknown kind or
// category contribute nothing.
func (p Pricer) Price(items []Item) Totals {
	units := make(map[string]int, len(breakdownOrder))
	amounts := make(map[string]decimal.Decimal, len(breakdownOrder))

	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		switch it.Kind {
		case KindCanvas:
			units[string(it.Category)] += it.Qty
		case KindProduct:
			units[string(KindProduct)] += it.Qty
			if it.Price != nil {
				line := it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
				amounts[string(KindProduct)] = amounts[string(KindProduct)].Add(line)
			}
		}
	}

	amounts[string(CategoryStandard)] = StandardTier(units[string(CategoryStandard)])
	amounts[string(CategoryPair)] = PairUnitPrice.Mul(decimal.NewFromInt(int64(units[string(CategoryPair)])))
	amounts[string(CategoryTriple)] = TripleUnitPrice.Mul(decimal.NewFromInt(int64(units[string(CategoryTriple)])))

	t := Totals{Subtotal: decimal.Zero, Categories: make([]CategoryTotal, 0, len(breakdownOrder))}
	for _, c := range breakdownOrder {
		t.Categories = append(t.Categories, CategoryTotal{Category: c, Units: units[c], Amount: amounts[c]})
		t.Subtotal = t.Subtotal.Add(amounts[c])
	}

	shipping := p.Shipping
	if shipping == nil {
		shipping = FreeShipping
	}
	t.Shipping = shipping(items, t.Subtotal)
	t.Total = t.Subtotal.Add(t.Shipping)
	return t
}

// Price uses the free-shipping rule.
func Price(items []Item) Totals {
	return NewPricer(nil).Price(items)
}
