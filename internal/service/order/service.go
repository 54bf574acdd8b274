package order

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"storefront-checkout/internal/apperr"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/storefront"
)

const (
	defaultLimit = 50
	maxLimit     = 200
	exportBatch  = 500
)

type ledger interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type backend interface {
	AdminOrders(ctx context.Context) ([]storefront.AdminOrder, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

type Service struct {
	ledger  ledger
	backend backend
	logger  *log.Logger
}

func New(ledger ledger, backend backend, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{ledger: ledger, backend: backend, logger: logger}
}

// List pages through orders placed via checkout, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.List(ctx, limit, offset)
}

// BackendOrders lists every order known to the storefront backend.
func (s *Service) BackendOrders(ctx context.Context) ([]storefront.AdminOrder, error) {
	orders, err := s.backend.AdminOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}
	return orders, nil
}

// UpdateStatus pushes the status to the backend, which owns the order, then
// mirrors it in the ledger. Orders placed elsewhere exist only in the backend.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", apperr.ErrInvalidInput, status)
	}
	if err := s.backend.UpdateOrderStatus(ctx, id, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
	}

	o, err := s.ledger.UpdateStatus(ctx, id, status)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("orders: status order_id=%s status=%s (backend only)", id, status)
		return &domain.Order{ID: id, Status: status}, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Printf("orders: status order_id=%s status=%s", id, status)
	return o, nil
}

var csvHeader = []string{"order_id", "session_id", "user_id", "payment_method", "total_amount", "item_count", "status", "created_at", "updated_at"}

// ExportCSV writes the whole ledger as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for offset := 0; ; offset += exportBatch {
		batch, err := s.ledger.List(ctx, exportBatch, offset)
		if err != nil {
			return fmt.Errorf("export orders: %w", err)
		}
		for _, o := range batch {
			rec := []string{
				o.ID,
				o.SessionID,
				o.UserID,
				o.PaymentMethod,
				o.TotalAmount.StringFixed(2),
				strconv.Itoa(o.ItemCount),
				string(o.Status),
				o.CreatedAt.UTC().Format(time.RFC3339),
				o.UpdatedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		if len(batch) < exportBatch {
			break
		}
	}
	cw.Flush()
	return cw.Error()
}
