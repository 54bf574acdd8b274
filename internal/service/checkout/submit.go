package checkout

import (
	"context"
	"errors"
	"fmt"

	"storefront-checkout/internal/apperr"
	core "storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/events"
)

// submit places the order for session id. Only the holder of the session's
// submit lock reaches the backend; everyone else gets the current state back.
func (s *Service) submit(ctx context.Context, id string, creds Credentials) (*Result, error) {
	owner := s.newID()
	ok, err := s.locker.Acquire(ctx, id, owner, s.submitTimeout*2)
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		s.logger.Printf("checkout: submit ignored session=%s lock held", id)
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Result{Session: sess, Outcome: core.NoOp}, nil
	}
	defer s.releaseLock(ctx, id, owner)

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Submission == core.SubmissionSubmitting {
		// We hold the lock, so the attempt that stored this never finished.
		s.logger.Printf("checkout: session=%s retrying after an interrupted submission", id)
		sess.FailSubmission()
	}
	now := s.now()
	if err := sess.BeginSubmission(now); err != nil {
		if errors.Is(err, core.ErrSubmissionInFlight) || errors.Is(err, core.ErrAlreadySubmitted) {
			return &Result{Session: sess, Outcome: core.NoOp}, nil
		}
		return s.abort(ctx, sess, err)
	}
	if creds.Token == "" {
		return s.abort(ctx, sess, core.ErrMissingToken)
	}
	sess.UpdatedAt = now
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	// The order must not be lost because the client went away.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.submitTimeout)
	defer cancel()

	cart, err := s.backend.Cart(submitCtx, sess.UserID)
	if err != nil {
		return s.fail(submitCtx, id, fmt.Errorf("%w: load cart: %w", apperr.ErrSubmission, err))
	}
	req, err := core.BuildOrder(sess, cart)
	if err != nil {
		return s.fail(submitCtx, id, err)
	}

	orderID, err := s.backend.CreateOrder(submitCtx, creds.Token, req)
	if err != nil {
		return s.fail(submitCtx, id, fmt.Errorf("%w: %w", apperr.ErrSubmission, err))
	}
	s.logger.Printf("checkout: order placed session=%s order_id=%s total=%.2f", id, orderID, req.TotalAmount)

	latest := s.complete(submitCtx, id, orderID)
	s.afterOrder(submitCtx, sess, cart, orderID)
	return &Result{Session: latest, Outcome: core.Moved, OrderID: orderID}, nil
}

const completeAttempts = 3

// complete records the placed order on the stored session. It returns nil
// when the session was closed meanwhile.
func (s *Service) complete(ctx context.Context, id, orderID string) *core.Session {
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		latest, err := s.sessions.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("checkout: session=%s closed during submission, order_id=%s kept", id, orderID)
			return nil
		}
		if err != nil {
			s.logger.Printf("checkout: reload session=%s error=%v", id, err)
			return nil
		}
		latest.CompleteSubmission(orderID)
		latest.UpdatedAt = s.now()
		err = s.sessions.Save(ctx, latest)
		switch {
		case err == nil:
			return latest
		case errors.Is(err, domain.ErrConflict):
			continue
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Printf("checkout: session=%s closed during submission, order_id=%s kept", id, orderID)
			return nil
		default:
			s.logger.Printf("checkout: save completed session=%s error=%v", id, err)
			return latest
		}
	}
	s.logger.Printf("checkout: save completed session=%s gave up after %d conflicts", id, completeAttempts)
	return nil
}

// afterOrder runs the follow-ups of a placed order. None of them can undo
// the order, so failures are only logged.
func (s *Service) afterOrder(ctx context.Context, sess *core.Session, cart domain.Cart, orderID string) {
	if err := s.backend.ClearCart(ctx, sess.UserID); err != nil {
		s.logger.Printf("checkout: clear cart user_id=%s error=%v", sess.UserID, err)
	}

	total := cart.Total()
	err := s.orders.Record(ctx, domain.Order{
		ID:            orderID,
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		PaymentMethod: string(sess.PaymentMethod),
		TotalAmount:   total,
		ItemCount:     cart.ItemCount(),
		Status:        domain.OrderPending,
	})
	if err != nil {
		s.logger.Printf("checkout: record order_id=%s error=%v", orderID, err)
	}

	err = s.events.PublishOrderPlaced(ctx, events.OrderPlaced{
		OrderID:       orderID,
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		PaymentMethod: string(sess.PaymentMethod),
		TotalAmount:   total.StringFixed(2),
		ItemCount:     cart.ItemCount(),
		PlacedAt:      s.now().UTC(),
	})
	if err != nil {
		s.logger.Printf("checkout: publish order_id=%s error=%v", orderID, err)
	}
}

// abort records a precondition failure found before anything was sent.
func (s *Service) abort(ctx context.Context, sess *core.Session, cause error) (*Result, error) {
	sess.FailSubmission()
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Printf("checkout: submit rejected session=%s reason=%v", sess.ID, cause)
	return &Result{Session: sess, Outcome: core.Blocked}, cause
}

// fail releases the submission slot after the attempt started. The step is
// unchanged and the user may retry.
func (s *Service) fail(ctx context.Context, id string, cause error) (*Result, error) {
	s.logger.Printf("checkout: submit failed session=%s error=%v", id, cause)
	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return &Result{Outcome: core.Blocked}, cause
	}
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	sess.FailSubmission()
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, errors.Join(cause, err)
	}
	return &Result{Session: sess, Outcome: core.Blocked}, cause
}
