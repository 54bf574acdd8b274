package domain

import "github.com/shopspring/decimal"

// Product is the catalogue entry embedded in backend cart lines.
type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name,omitempty"`
	Model         string          `json:"model,omitempty"`
	Image         string          `json:"image,omitempty"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
}

// EffectivePrice is the unit price after the flat discount.
func (p Product) EffectivePrice() decimal.Decimal {
	return p.Price.Sub(p.DiscountPrice)
}

// DisplayName prefers the product name and falls back to the model.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Model
}
