package checkout

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrUnknownField         = errors.New("unknown field")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidCardType      = errors.New("unsupported card type")
	ErrCardPaymentRequired  = errors.New("card details require card payment")

	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrAlreadySubmitted   = errors.New("order already placed")

	ErrNotAtConfirmation  = errors.New("order can only be placed from the confirmation step")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIncompleteShipping = errors.New("shipping details are incomplete")
	ErrIncompletePayment  = errors.New("payment details are incomplete")
	ErrMissingToken       = errors.New("user not authenticated")
)

// ValidationError carries the per-field messages that blocked a step.
type ValidationError struct {
	Fields map[Field]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// IsPrecondition reports whether err is a submission precondition failure:
// nothing was sent to the backend and the session can be fixed and retried.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotAtConfirmation) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrIncompleteShipping) ||
		errors.Is(err, ErrIncompletePayment) ||
		errors.Is(err, ErrMissingToken)
}
