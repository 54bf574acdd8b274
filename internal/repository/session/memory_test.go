package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
)

func TestMemory_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s := checkout.NewSession("s1", "u1", now)
	if err := s.SetField(checkout.FieldName, "john smith", now); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.Shipping.Name = "changed after save"
	got, err := repo.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Shipping.Name != "John Smith" || got.UserID != "u1" {
		t.Fatalf("unexpected session %+v", got.Shipping)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Minute).(*memoryRepo)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	if err := repo.Save(ctx, checkout.NewSession("s1", "u1", clock)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clock = clock.Add(59 * time.Second)
	if _, err := repo.Get(ctx, "s1"); err != nil {
		t.Fatalf("expected session before ttl, got %v", err)
	}
	clock = clock.Add(time.Second)
	if _, err := repo.Get(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemory_SaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s := checkout.NewSession("s1", "u1", now)
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Version != 1 {
		t.Fatalf("expected version 1 after first save, got %d", s.Version)
	}

	a, _ := repo.Get(ctx, "s1")
	b, _ := repo.Get(ctx, "s1")
	a.Shipping.City = "Pune"
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	b.Shipping.City = "Goa"
	if err := repo.Save(ctx, b); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for stale write, got %v", err)
	}
	got, _ := repo.Get(ctx, "s1")
	if got.Shipping.City != "Pune" || got.Version != 2 {
		t.Fatalf("unexpected stored session city=%q version=%d", got.Shipping.City, got.Version)
	}

	if err := repo.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Save(ctx, got); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("a deleted session must not be recreated, got %v", err)
	}
}
