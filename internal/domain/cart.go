package domain

import "github.com/shopspring/decimal"

type Cart struct {
	UserID string     `json:"userId,omitempty"`
	Items  []CartItem `json:"items"`
}

type CartItem struct {
	Product  *Product `json:"productId"`
	Quantity int      `json:"quantity"`
}

// Qty treats a missing quantity as a single unit.
func (i CartItem) Qty() int {
	if i.Quantity <= 0 {
		return 1
	}
	return i.Quantity
}

// IsEmpty reports whether the cart has no purchasable lines.
func (c Cart) IsEmpty() bool {
	for _, item := range c.Items {
		if item.Product != nil {
			return false
		}
	}
	return true
}

// ItemCount sums line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}
		n += item.Qty()
	}
	return n
}

// Total sums (price - discount) * quantity over lines that carry a price.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.Product == nil || item.Product.Price.IsZero() {
			continue
		}
		line := item.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Qty())))
		total = total.Add(line)
	}
	return total.Round(2)
}
