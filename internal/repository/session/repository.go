package session

import (
	"context"

	"storefront-checkout/internal/checkout"
)

// Repository stores open checkout sessions. Get returns domain.ErrNotFound for
// unknown or expired ids. Save is a compare-and-set on Session.Version: it
// fails with domain.ErrConflict when the stored version moved on since the
// session was read, and with domain.ErrNotFound when a previously saved
// session is gone. On success it bumps s.Version.
type Repository interface {
	Get(ctx context.Context, id string) (*checkout.Session, error)
	Save(ctx context.Context, s *checkout.Session) error
	Delete(ctx context.Context, id string) error
}
