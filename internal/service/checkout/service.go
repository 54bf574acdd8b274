package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront-checkout/internal/apperr"
	core "storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/events"
)

type sessionStore interface {
	Get(ctx context.Context, id string) (*core.Session, error)
	Save(ctx context.Context, s *core.Session) error
	Delete(ctx context.Context, id string) error
}

type backend interface {
	UserID(ctx context.Context, email string) (string, error)
	Cart(ctx context.Context, userID string) (domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (string, error)
}

type ledger interface {
	Record(ctx context.Context, o domain.Order) error
}

type publisher interface {
	PublishOrderPlaced(ctx context.Context, ev events.OrderPlaced) error
}

type locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Deps are the collaborators of the checkout service.
type Deps struct {
	Sessions sessionStore
	Backend  backend
	Orders   ledger
	Events   publisher
	Locker   locker
	Logger   *log.Logger
}

type Options struct {
	// SubmitTimeout bounds order creation; the call is detached from the
	// client request.
	SubmitTimeout time.Duration
	Now           func() time.Time
	NewID         func() string
}

type Service struct {
	sessions      sessionStore
	backend       backend
	orders        ledger
	events        publisher
	locker        locker
	logger        *log.Logger
	submitTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

func New(deps Deps, opts Options) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		sessions:      deps.Sessions,
		backend:       deps.Backend,
		orders:        deps.Orders,
		events:        deps.Events,
		locker:        deps.Locker,
		logger:        logger,
		submitTimeout: opts.SubmitTimeout,
		now:           opts.Now,
		newID:         opts.NewID,
	}
}

type OpenInput struct {
	UserID string `json:"userId"`
	Email  string `json:"email" binding:"omitempty,email"`
}

// Credentials carry the caller's bearer token for order creation.
type Credentials struct {
	Token string
}

// Result is the session after Advance plus what Advance did.
type Result struct {
	Session *core.Session `json:"session,omitempty"`
	Outcome core.Outcome  `json:"outcome"`
	OrderID string        `json:"orderId,omitempty"`
}

// Open starts a checkout for a user with a non-empty cart.
func (s *Service) Open(ctx context.Context, in OpenInput) (*core.Session, error) {
	userID := strings.TrimSpace(in.UserID)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if userID == "" && email == "" {
		return nil, fmt.Errorf("%w: userId or email required", apperr.ErrInvalidInput)
	}
	if userID == "" {
		id, err := s.backend.UserID(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("resolve user: %w", upstream(err))
		}
		userID = id
	}

	cart, err := s.backend.Cart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", upstream(err))
	}
	if cart.IsEmpty() {
		return nil, core.ErrEmptyCart
	}

	now := s.now()
	sess := core.NewSession(s.newID(), userID, now)
	if email != "" {
		if err := sess.SetField(core.FieldEmail, email, now); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Printf("checkout: open session=%s user_id=%s items=%d", sess.ID, userID, cart.ItemCount())
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*core.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Close discards the session. An order already in flight is left to finish.
func (s *Service) Close(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Printf("checkout: close session=%s", id)
	return nil
}

func (s *Service) SetField(ctx context.Context, id, field, value string) (*core.Session, error) {
	f, ok := core.ParseField(field)
	if !ok {
		return nil, core.ErrUnknownField
	}
	return s.mutate(ctx, id, func(sess *core.Session, now time.Time) error {
		return sess.SetField(f, value, now)
	})
}

func (s *Service) Blur(ctx context.Context, id, field string) (*core.Session, error) {
	f, ok := core.ParseField(field)
	if !ok {
		return nil, core.ErrUnknownField
	}
	return s.mutate(ctx, id, func(sess *core.Session, now time.Time) error {
		return sess.Blur(f, now)
	})
}

func (s *Service) SelectPaymentMethod(ctx context.Context, id string, m core.PaymentMethod) (*core.Session, error) {
	return s.mutate(ctx, id, func(sess *core.Session, _ time.Time) error {
		return sess.SelectPaymentMethod(m)
	})
}

func (s *Service) SelectCardType(ctx context.Context, id string, t core.CardType) (*core.Session, error) {
	return s.mutate(ctx, id, func(sess *core.Session, _ time.Time) error {
		return sess.SelectCardType(t)
	})
}

func (s *Service) Retreat(ctx context.Context, id string) (*core.Session, error) {
	return s.mutate(ctx, id, func(sess *core.Session, _ time.Time) error {
		sess.Retreat()
		return nil
	})
}

// Validate checks values without touching any session.
func (s *Service) Validate(values map[string]string, cardType core.CardType) (map[core.Field]string, error) {
	now := s.now()
	out := make(map[core.Field]string)
	for name, v := range values {
		f, ok := core.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownField, name)
		}
		if msg := core.Validate(f, v, cardType, now); msg != "" {
			out[f] = msg
		}
	}
	return out, nil
}

// Advance moves the session forward. From the confirmation step it places the
// order; a trigger that arrives while a submission is in flight is ignored.
func (s *Service) Advance(ctx context.Context, id string, creds Credentials) (*Result, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Whether an attempt is really in flight is decided by the submit lock,
	// not by the stored flag, which outlives a crashed attempt.
	if sess.Submission == core.SubmissionSubmitting {
		return s.submit(ctx, id, creds)
	}
	now := s.now()
	out, err := sess.Advance(now)
	if err != nil {
		return nil, err
	}

	switch out {
	case core.SubmitRequired:
		return s.submit(ctx, id, creds)
	case core.NoOp:
		return &Result{Session: sess, Outcome: out}, nil
	}
	sess.UpdatedAt = now
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &Result{Session: sess, Outcome: out}, nil
}

const mutateAttempts = 3

// mutate applies fn to a fresh copy of the session and saves it, starting
// over when the save lost a race with another writer.
func (s *Service) mutate(ctx context.Context, id string, fn func(*core.Session, time.Time) error) (*core.Session, error) {
	for attempt := 1; ; attempt++ {
		sess, err := s.sessions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.recoverStale(ctx, sess); err != nil {
			return nil, err
		}
		now := s.now()
		if err := fn(sess, now); err != nil {
			return nil, err
		}
		sess.UpdatedAt = now
		err = s.sessions.Save(ctx, sess)
		if errors.Is(err, domain.ErrConflict) && attempt < mutateAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// recoverStale fails a submission that is recorded as in flight although
// nobody holds its lock, so the session becomes editable again.
func (s *Service) recoverStale(ctx context.Context, sess *core.Session) error {
	if sess.Submission != core.SubmissionSubmitting {
		return nil
	}
	owner := s.newID()
	ok, err := s.locker.Acquire(ctx, sess.ID, owner, s.submitTimeout)
	if err != nil {
		return fmt.Errorf("acquire submit lock: %w", err)
	}
	if !ok {
		return nil
	}
	defer s.releaseLock(ctx, sess.ID, owner)

	s.logger.Printf("checkout: session=%s recorded as submitting without a live attempt, marking failed", sess.ID)
	sess.FailSubmission()
	sess.UpdatedAt = s.now()
	return s.sessions.Save(ctx, sess)
}

func (s *Service) releaseLock(ctx context.Context, id, owner string) {
	if err := s.locker.Release(context.WithoutCancel(ctx), id, owner); err != nil {
		s.logger.Printf("checkout: release submit lock session=%s error=%v", id, err)
	}
}

// upstream tags backend failures that are not already classified.
func upstream(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
}
