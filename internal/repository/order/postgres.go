package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/domain"
)

const selectColumns = `id, session_id, user_id, payment_method, total_amount::text, item_count, status, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Record(ctx context.Context, o domain.Order) error {
	const q = `
INSERT INTO checkout_orders (id, session_id, user_id, payment_method, total_amount, item_count, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, COALESCE($8, NOW()), COALESCE($9, $8, NOW()))
`
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	_, err := r.pool.Exec(ctx, q, o.ID, o.SessionID, o.UserID, o.PaymentMethod, o.TotalAmount.StringFixed(2), o.ItemCount, string(o.Status),
		nullTime(o.CreatedAt), nullTime(o.UpdatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: record id=%s error=%v", o.ID, err)
		return err
	}
	r.logger.Printf("order repo: record id=%s user_id=%s total=%s", o.ID, o.UserID, o.TotalAmount.StringFixed(2))
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + selectColumns + ` FROM checkout_orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	q := `SELECT ` + selectColumns + ` FROM checkout_orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("order repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	q := `UPDATE checkout_orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + selectColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: update status id=%s error=%v", id, err)
		return nil, err
	}
	r.logger.Printf("order repo: update status id=%s status=%s", id, status)
	return o, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		total  string
		status string
	)
	if err := row.Scan(&o.ID, &o.SessionID, &o.UserID, &o.PaymentMethod, &total, &o.ItemCount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = amount
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

// nullTime lets the database stamp zero timestamps.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
