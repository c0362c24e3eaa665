package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one product's entry in the cart.
type LineItem struct {
	Product
	Amount int `json:"amount"`
}

// SubTotal is price * amount.
func (i LineItem) SubTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Amount)))
}

// Cart is an ordered list of line items with unique product ids.
// A Cart is never mutated in place: With/Without return new carts.
type Cart []LineItem

func (c Cart) Index(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Find(productID int64) (LineItem, bool) {
	if i := c.Index(productID); i >= 0 {
		return c[i], true
	}
	return LineItem{}, false
}

// With returns a copy of c where the line item for item.ID is replaced, or
// appended when absent.
func (c Cart) With(item LineItem) Cart {
	out := make(Cart, 0, len(c)+1)
	replaced := false
	for _, existing := range c {
		if existing.ID == item.ID {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

// Without returns a copy of c with productID removed.
func (c Cart) Without(productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, existing := range c {
		if existing.ID != productID {
			out = append(out, existing)
		}
	}
	return out
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.SubTotal())
	}
	return total
}

// Amounts maps product id to in-cart amount.
func (c Cart) Amounts() map[int64]int {
	out := make(map[int64]int, len(c))
	for _, item := range c {
		out[item.ID] = item.Amount
	}
	return out
}

// MarshalJSON writes an empty cart as [] rather than null.
func (c Cart) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]LineItem(c))
}

// DecodeCart parses a stored cart blob. Entries with a non-positive id or
// amount are dropped and duplicate ids keep their first occurrence; the number
// of dropped entries is returned so callers can report the repair.
func DecodeCart(data []byte) (Cart, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode cart: %w", err)
	}

	cart := make(Cart, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	dropped := 0
	for _, entry := range raw {
		var item LineItem
		if err := json.Unmarshal(entry, &item); err != nil {
			dropped++
			continue
		}
		if item.ID <= 0 || item.Amount < 1 || item.Price.IsNegative() {
			dropped++
			continue
		}
		if _, dup := seen[item.ID]; dup {
			dropped++
			continue
		}
		seen[item.ID] = struct{}{}
		cart = append(cart, item)
	}
	return cart, dropped, nil
}
