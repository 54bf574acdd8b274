package order

import (
	"context"

	"storefront-checkout/internal/domain"
)

// Repository is the ledger of orders placed through checkout.
type Repository interface {
	Record(ctx context.Context, o domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}
