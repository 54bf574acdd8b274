package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/domain"
)

// demoOrders gives the admin order views something to page through locally.
var demoOrders = []domain.Order{
	{ID: "demo-order-0001", SessionID: "demo-session-1", UserID: "demo-user-1", PaymentMethod: "cod", TotalAmount: decimal.RequireFromString("1099.00"), ItemCount: 2, Status: domain.OrderPending},
	{ID: "demo-order-0002", SessionID: "demo-session-2", UserID: "demo-user-1", PaymentMethod: "card", TotalAmount: decimal.RequireFromString("249.50"), ItemCount: 1, Status: domain.OrderProcessing},
	{ID: "demo-order-0003", SessionID: "demo-session-3", UserID: "demo-user-2", PaymentMethod: "card", TotalAmount: decimal.RequireFromString("3480.00"), ItemCount: 4, Status: domain.OrderShipped},
	{ID: "demo-order-0004", SessionID: "demo-session-4", UserID: "demo-user-3", PaymentMethod: "cod", TotalAmount: decimal.RequireFromString("75.00"), ItemCount: 1, Status: domain.OrderCancelled},
}

// Apply inserts demo ledger rows for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, now time.Time) (int, error) {
	inserted := 0
	for i, o := range demoOrders {
		created := now.Add(-time.Duration(len(demoOrders)-i) * 24 * time.Hour).UTC()
		ok, err := insertOrder(ctx, pool, o, created)
		if err != nil {
			return inserted, fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func insertOrder(ctx context.Context, pool *pgxpool.Pool, o domain.Order, created time.Time) (bool, error) {
	const q = `
INSERT INTO checkout_orders (id, session_id, user_id, payment_method, total_amount, item_count, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $8)
ON CONFLICT (id) DO NOTHING
`
	tag, err := pool.Exec(ctx, q, o.ID, o.SessionID, o.UserID, o.PaymentMethod, o.TotalAmount.StringFixed(2), o.ItemCount, string(o.Status), created)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
