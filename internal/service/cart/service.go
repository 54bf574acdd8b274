package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-checkout/internal/currency"
	"storefront-checkout/internal/domain"
)

type cartSource interface {
	Cart(ctx context.Context, userID string) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) error
	SetItemQuantity(ctx context.Context, userID, productID string, quantity int) error
}

// MinQuantity is the smallest quantity a cart line can hold; removing a line
// is a separate operation.
const MinQuantity = 1

type converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, lang string) currency.Display
}

type Service struct {
	carts     cartSource
	converter converter
}

func New(carts cartSource, converter converter) *Service {
	return &Service{carts: carts, converter: converter}
}

// Line is one cart line priced for display.
type Line struct {
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Image     string           `json:"image,omitempty"`
	Quantity  int              `json:"quantity"`
	UnitPrice currency.Display `json:"unitPrice"`
	LineTotal currency.Display `json:"lineTotal"`
}

type Summary struct {
	UserID    string           `json:"userId"`
	Items     []Line           `json:"items"`
	ItemCount int              `json:"itemCount"`
	Total     currency.Display `json:"total"`
}

// Summary prices the user's cart in the currency of lang using the same
// arithmetic as the order payload.
func (s *Service) Summary(ctx context.Context, userID, lang string) (*Summary, error) {
	if blank(userID) {
		return nil, domain.ErrNotFound
	}
	c, err := s.carts.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Summary{UserID: userID, Items: make([]Line, 0, len(c.Items)), ItemCount: c.ItemCount()}
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}
		unit := item.Product.EffectivePrice()
		out.Items = append(out.Items, Line{
			ProductID: item.Product.ID,
			Name:      item.Product.DisplayName(),
			Image:     item.Product.Image,
			Quantity:  item.Qty(),
			UnitPrice: s.converter.Convert(ctx, unit, lang),
			LineTotal: s.converter.Convert(ctx, unit.Mul(decimal.NewFromInt(int64(item.Qty()))), lang),
		})
	}
	out.Total = s.converter.Convert(ctx, c.Total(), lang)
	return out, nil
}

// RemoveItem drops productID from the cart and returns the repriced summary.
func (s *Service) RemoveItem(ctx context.Context, userID, productID, lang string) (*Summary, error) {
	if blank(userID) || blank(productID) {
		return nil, domain.ErrNotFound
	}
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID, lang)
}

// UpdateQuantity sets the quantity of a cart line, raising anything below
// MinQuantity to it.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int, lang string) (*Summary, error) {
	if blank(userID) || blank(productID) {
		return nil, domain.ErrNotFound
	}
	if err := s.carts.SetItemQuantity(ctx, userID, productID, clampQuantity(quantity)); err != nil {
		return nil, err
	}
	return s.Summary(ctx, userID, lang)
}

// AdjustQuantity moves a line's quantity by delta, as the cart page's plus
// and minus buttons do. The line must already be in the cart.
func (s *Service) AdjustQuantity(ctx context.Context, userID, productID string, delta int, lang string) (*Summary, error) {
	if blank(userID) || blank(productID) {
		return nil, domain.ErrNotFound
	}
	c, err := s.carts.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range c.Items {
		if item.Product != nil && item.Product.ID == productID {
			return s.UpdateQuantity(ctx, userID, productID, item.Qty()+delta, lang)
		}
	}
	return nil, domain.ErrNotFound
}

func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	return q
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
