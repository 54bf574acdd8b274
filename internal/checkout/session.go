package checkout

import (
	"time"
)

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSucceeded  SubmissionState = "succeeded"
	SubmissionFailed     SubmissionState = "failed"
)

// Outcome reports what Advance did.
type Outcome string

const (
	Moved          Outcome = "moved"
	Blocked        Outcome = "blocked"
	SubmitRequired Outcome = "submit"
	NoOp           Outcome = "noop"
)

// Session is the mutable state of one checkout attempt. Version is owned by
// the session store, which bumps it on every save.
type Session struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Step          int              `json:"step"`
	Direction     Direction        `json:"direction"`
	Shipping      ShippingDetails  `json:"shipping"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	CardType      CardType         `json:"cardType"`
	Card          CardDetails      `json:"card"`
	FieldErrors   map[Field]string `json:"fieldErrors"`
	Touched       map[Field]bool   `json:"touched"`
	Submission    SubmissionState  `json:"submission"`
	OrderID       string           `json:"orderId,omitempty"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// NewSession starts a checkout on the shipping step.
func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:          id,
		UserID:      userID,
		Step:        StepShipping,
		Direction:   Forward,
		FieldErrors: map[Field]string{},
		Touched:     map[Field]bool{},
		Submission:  SubmissionIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Panel is the panel shown at the current step.
func (s *Session) Panel() Panel {
	return PanelAt(s.PaymentMethod, s.Step)
}

// Value returns the stored input for f.
func (s *Session) Value(f Field) string {
	switch f {
	case FieldName:
		return s.Shipping.Name
	case FieldEmail:
		return s.Shipping.Email
	case FieldPhone:
		return s.Shipping.Phone
	case FieldAddress:
		return s.Shipping.Address
	case FieldCity:
		return s.Shipping.City
	case FieldState:
		return s.Shipping.State
	case FieldZipCode:
		return s.Shipping.ZipCode
	case FieldPaymentMethod:
		return string(s.PaymentMethod)
	case FieldCardType:
		return string(s.CardType)
	case FieldCardNumber:
		return s.Card.Number
	case FieldCardExpiry:
		return s.Card.Expiry
	case FieldCardCVC:
		return s.Card.CVC
	}
	return ""
}

func (s *Session) setValue(f Field, v string) {
	switch f {
	case FieldName:
		s.Shipping.Name = v
	case FieldEmail:
		s.Shipping.Email = v
	case FieldPhone:
		s.Shipping.Phone = v
	case FieldAddress:
		s.Shipping.Address = v
	case FieldCity:
		s.Shipping.City = v
	case FieldState:
		s.Shipping.State = v
	case FieldZipCode:
		s.Shipping.ZipCode = v
	case FieldCardNumber:
		s.Card.Number = v
	case FieldCardExpiry:
		s.Card.Expiry = v
	case FieldCardCVC:
		s.Card.CVC = v
	}
}

// SetField records a keystroke-level change. Payment method and card type are
// routed to their selectors; other values are normalised before storing and
// revalidated once the field has been touched.
func (s *Session) SetField(f Field, raw string, now time.Time) error {
	if err := s.editable(); err != nil {
		return err
	}
	if _, ok := knownFields[f]; !ok {
		return ErrUnknownField
	}
	switch f {
	case FieldPaymentMethod:
		return s.SelectPaymentMethod(PaymentMethod(raw))
	case FieldCardType:
		return s.SelectCardType(CardType(raw))
	}
	if f.isCard() && s.PaymentMethod != PaymentCard {
		return ErrCardPaymentRequired
	}
	s.setValue(f, Normalize(f, raw, s.CardType))
	if s.Touched[f] {
		s.check(f, now)
	}
	return nil
}

// Blur marks f as touched and validates it.
func (s *Session) Blur(f Field, now time.Time) error {
	if _, ok := knownFields[f]; !ok {
		return ErrUnknownField
	}
	s.ensureMaps()
	s.Touched[f] = true
	s.check(f, now)
	return nil
}

// SelectPaymentMethod sets the payment method. Leaving card payment discards
// the card type and card details. Selecting the current method is a no-op;
// a real change past the method step returns the session to that step so the
// step never exceeds the new topology.
func (s *Session) SelectPaymentMethod(m PaymentMethod) error {
	if err := s.editable(); err != nil {
		return err
	}
	if !m.Valid() {
		return ErrInvalidPaymentMethod
	}
	s.ensureMaps()
	delete(s.FieldErrors, FieldPaymentMethod)
	if m == s.PaymentMethod {
		return nil
	}
	if s.PaymentMethod == PaymentCard {
		s.clearCard()
	}
	s.PaymentMethod = m
	if s.Step > StepPaymentMethod {
		s.Step = StepPaymentMethod
		s.Direction = Backward
	}
	return nil
}

// SelectCardType picks the card network. Switching networks clears the card
// number because its rules no longer apply.
func (s *Session) SelectCardType(t CardType) error {
	if err := s.editable(); err != nil {
		return err
	}
	if s.PaymentMethod != PaymentCard {
		return ErrCardPaymentRequired
	}
	if !t.Known() {
		return ErrInvalidCardType
	}
	s.ensureMaps()
	delete(s.FieldErrors, FieldCardType)
	if t == s.CardType {
		return nil
	}
	s.CardType = t
	s.Card.Number = ""
	delete(s.FieldErrors, FieldCardNumber)
	return nil
}

// Advance validates the current step and moves forward. On the confirmation
// step it asks the caller to submit the order instead; on the terminal step
// it does nothing.
func (s *Session) Advance(now time.Time) (Outcome, error) {
	if s.Submission == SubmissionSubmitting {
		return NoOp, ErrSubmissionInFlight
	}
	switch s.Panel() {
	case PanelSuccess:
		return NoOp, nil
	case PanelConfirm:
		return SubmitRequired, nil
	}
	if !s.checkAll(s.stepFields(), now) {
		return Blocked, nil
	}
	s.Step++
	s.Direction = Forward
	return Moved, nil
}

// Retreat moves back one step without validating. It is refused on the first
// step, on the terminal step and while an order is being submitted.
func (s *Session) Retreat() bool {
	if s.Submission == SubmissionSubmitting || s.Step <= StepShipping || s.Panel() == PanelSuccess {
		return false
	}
	s.Step--
	s.Direction = Backward
	return true
}

// BeginSubmission claims the single submission slot. Precondition failures
// mark the submission failed and leave the session editable.
func (s *Session) BeginSubmission(now time.Time) error {
	switch s.Submission {
	case SubmissionSubmitting:
		return ErrSubmissionInFlight
	case SubmissionSucceeded:
		return ErrAlreadySubmitted
	}
	if s.Panel() != PanelConfirm {
		return ErrNotAtConfirmation
	}
	if err := s.complete(now); err != nil {
		s.Submission = SubmissionFailed
		return err
	}
	s.Submission = SubmissionSubmitting
	return nil
}

// CompleteSubmission records the placed order and jumps to the terminal step.
func (s *Session) CompleteSubmission(orderID string) {
	s.Submission = SubmissionSucceeded
	s.OrderID = orderID
	s.Step = TerminalStep(s.PaymentMethod)
	s.Direction = Forward
}

// FailSubmission releases the submission slot; the step is unchanged.
func (s *Session) FailSubmission() {
	s.Submission = SubmissionFailed
}

// ErrorsFor returns the current messages for the given fields.
func (s *Session) ErrorsFor(fields []Field) map[Field]string {
	out := make(map[Field]string)
	for _, f := range fields {
		if msg, ok := s.FieldErrors[f]; ok {
			out[f] = msg
		}
	}
	return out
}

// StepFields lists the fields validated when leaving the current step.
func (s *Session) StepFields() []Field {
	return s.stepFields()
}

func (s *Session) stepFields() []Field {
	switch s.Panel() {
	case PanelShipping:
		return shippingFields
	case PanelPaymentMethod:
		return []Field{FieldPaymentMethod}
	case PanelCardType:
		return []Field{FieldCardType}
	case PanelCardDetails:
		return cardFields
	}
	return nil
}

// complete re-checks every step before the confirmation panel so an order is
// never placed with a field that was changed after its step was passed.
func (s *Session) complete(now time.Time) error {
	if !s.checkAll(shippingFields, now) {
		return ErrIncompleteShipping
	}
	if !s.checkAll([]Field{FieldPaymentMethod}, now) {
		return ErrIncompletePayment
	}
	if s.PaymentMethod == PaymentCard {
		if !s.checkAll(append([]Field{FieldCardType}, cardFields...), now) {
			return ErrIncompletePayment
		}
	}
	return nil
}

func (s *Session) checkAll(fields []Field, now time.Time) bool {
	ok := true
	for _, f := range fields {
		s.ensureMaps()
		s.Touched[f] = true
		if !s.check(f, now) {
			ok = false
		}
	}
	return ok
}

func (s *Session) check(f Field, now time.Time) bool {
	s.ensureMaps()
	if msg := Validate(f, s.Value(f), s.CardType, now); msg != "" {
		s.FieldErrors[f] = msg
		return false
	}
	delete(s.FieldErrors, f)
	return true
}

func (s *Session) clearCard() {
	s.CardType = CardUnset
	s.Card = CardDetails{}
	for _, f := range append([]Field{FieldCardType}, cardFields...) {
		delete(s.FieldErrors, f)
		delete(s.Touched, f)
	}
}

func (s *Session) editable() error {
	switch s.Submission {
	case SubmissionSubmitting:
		return ErrSubmissionInFlight
	case SubmissionSucceeded:
		return ErrAlreadySubmitted
	}
	return nil
}

func (s *Session) ensureMaps() {
	if s.FieldErrors == nil {
		s.FieldErrors = map[Field]string{}
	}
	if s.Touched == nil {
		s.Touched = map[Field]bool{}
	}
}
