package checkout

import (
	"storefront-checkout/internal/domain"
)

// BuildOrder turns a session and the current cart snapshot into the backend
// order-creation payload.
func BuildOrder(s *Session, cart domain.Cart) (domain.OrderRequest, error) {
	if cart.IsEmpty() {
		return domain.OrderRequest{}, ErrEmptyCart
	}
	for _, f := range shippingFields {
		if s.Value(f) == "" {
			return domain.OrderRequest{}, ErrIncompleteShipping
		}
	}
	if !s.PaymentMethod.Valid() {
		return domain.OrderRequest{}, ErrIncompletePayment
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		price, _ := item.Product.Price.Float64()
		items = append(items, domain.OrderItem{
			ProductID: item.Product.ID,
			Quantity:  item.Qty(),
			Price:     price,
		})
	}
	total, _ := cart.Total().Float64()

	return domain.OrderRequest{
		Items:       items,
		TotalAmount: total,
		ShippingAddress: domain.ShippingAddress{
			Name:    s.Shipping.Name,
			Address: s.Shipping.Address,
			City:    s.Shipping.City,
			State:   s.Shipping.State,
			ZipCode: s.Shipping.ZipCode,
			Phone:   s.Shipping.Phone,
		},
		PaymentMethod: string(s.PaymentMethod),
	}, nil
}
