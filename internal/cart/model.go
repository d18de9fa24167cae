package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindCanvas  Kind = "canvas"
	KindProduct Kind = "product"
)

func (k Kind) Valid() bool {
	return k == KindCanvas || k == KindProduct
}

// Category only applies to canvases. Merch items leave it empty.
type Category string

const (
	CategoryStandard Category = "standard"
	CategoryPair     Category = "pair"
	CategoryTriple   Category = "triple"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryStandard, CategoryPair, CategoryTriple:
		return true
	}
	return false
}

// SizeOne is the size token for merch that comes in a single size.
const SizeOne = "ONE"

type Item struct {
	ID       string           `json:"id"`
	Kind     Kind             `json:"kind"`
	Category Category         `json:"category,omitempty"`
	Name     string           `json:"name"`
	Size     string           `json:"size"`
	Image    string           `json:"image,omitempty"`
	Qty      int              `json:"qty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

func (it Item) Key() Key {
	return Key{Kind: it.Kind, ID: it.ID, Size: it.Size}
}

var (
	ErrInvalidKind     = errors.New("invalid item kind")
	ErrInvalidCategory = errors.New("invalid canvas category")
	ErrMissingID       = errors.New("item id is required")
	ErrMissingPrice    = errors.New("product price is required")
	ErrNegativePrice   = errors.New("product price cannot be negative")
)

// Validate checks an item descriptor before it is added to a cart.
// Quantity is not checked here; the store normalises it.
func (it Item) Validate() error {
	if strings.TrimSpace(it.ID) == "" {
		return ErrMissingID
	}
	switch it.Kind {
	case KindCanvas:
		if !it.Category.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidCategory, it.Category)
		}
	case KindProduct:
		if it.Price == nil {
			return ErrMissingPrice
		}
		if it.Price.IsNegative() {
			return ErrNegativePrice
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, it.Kind)
	}
	return nil
}

// Key identifies a line item inside a cart.
type Key struct {
	Kind Kind
	ID   string
	Size string
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID + ":" + k.Size
}

// ParseKey is the inverse of Key.String. The id may itself contain colons;
// kind is everything before the first one and size everything after the last one.
func ParseKey(s string) (Key, error) {
	first := strings.Index(s, ":")
	last := strings.LastIndex(s, ":")
	if first < 0 || first == last {
		return Key{}, fmt.Errorf("malformed item key %q", s)
	}
	k := Key{Kind: Kind(s[:first]), ID: s[first+1 : last], Size: s[last+1:]}
	if !k.Kind.Valid() {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKind, k.Kind)
	}
	if k.ID == "" {
		return Key{}, ErrMissingID
	}
	return k, nil
}

func cloneItem(it Item) Item {
	if it.Price != nil {
		p := *it.Price
		it.Price = &p
	}
	return it
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}
