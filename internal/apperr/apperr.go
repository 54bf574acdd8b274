// Package apperr classifies errors from the checkout packages for transport.
package apperr

import (
	"context"
	"errors"
	"net/http"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	"storefront-checkout/internal/storefront"
)

var (
	// ErrSubmission wraps a backend failure while creating an order.
	ErrSubmission = errors.New("order submission failed")
	// ErrInvalidInput marks malformed requests that are not field-level.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream marks backend failures outside order submission.
	ErrUpstream = errors.New("storefront backend unavailable")
)

const (
	KindValidation      = "validation"
	KindPrecondition    = "precondition"
	KindUnauthenticated = "unauthenticated"
	KindConflict        = "conflict"
	KindSubmission      = "submission"
	KindUpstream        = "upstream"
	KindNotFound        = "not_found"
	KindTimeout         = "timeout"
	KindCanceled        = "canceled"
	KindInternal        = "internal"
)

var kindToStatus = map[string]int{
	KindValidation:      http.StatusUnprocessableEntity,
	KindPrecondition:    http.StatusPreconditionFailed,
	KindUnauthenticated: http.StatusUnauthorized,
	KindConflict:        http.StatusConflict,
	KindSubmission:      http.StatusBadGateway,
	KindUpstream:        http.StatusBadGateway,
	KindNotFound:        http.StatusNotFound,
	KindTimeout:         http.StatusGatewayTimeout,
	KindCanceled:        http.StatusBadRequest,
	KindInternal:        http.StatusInternalServerError,
}

func Kind(err error) string {
	var verr *checkout.ValidationError
	var serr *storefront.Error
	switch {
	case err == nil:
		return ""

	case errors.Is(err, checkout.ErrMissingToken):
		return KindUnauthenticated

	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, checkout.ErrUnknownField),
		errors.Is(err, checkout.ErrInvalidPaymentMethod),
		errors.Is(err, checkout.ErrInvalidCardType),
		errors.Is(err, checkout.ErrCardPaymentRequired):
		return KindValidation

	case checkout.IsPrecondition(err):
		return KindPrecondition

	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrConflict):
		return KindConflict

	case errors.Is(err, ErrSubmission):
		return KindSubmission

	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, context.Canceled):
		return KindCanceled

	case errors.Is(err, ErrUpstream), errors.As(err, &serr):
		return KindUpstream

	default:
		return KindInternal
	}
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FieldErrors extracts per-field messages, if err carries any.
func FieldErrors(err error) map[checkout.Field]string {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
