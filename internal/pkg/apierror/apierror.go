// Package apierror holds the error shapes shared by the external collaborators
// (identity provider, payment processor, text generator, balance store) and
// the HTTP layer that turns them into responses.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Service names the external collaborator an error came from.
type Service string

const (
	IdentityProvider Service = "identity_provider"
	PaymentProcessor Service = "payment_processor"
	TextGenerator    Service = "text_generator"
	Store            Service = "store"
)

// UpstreamError wraps a failure returned by an external collaborator.
//
// Rejected marks a request the collaborator understood and refused (bad
// confirmation code, declined checkout parameters). Those surface as 400 with
// the collaborator's message; everything else is a 500.
type UpstreamError struct {
	Service  Service
	Rejected bool
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Status is the HTTP status the error maps to.
func (e *UpstreamError) Status() int {
	if e.Rejected {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Upstream wraps err as an unexpected failure of svc. A nil err stays nil.
func Upstream(svc Service, err error) error {
	if err == nil {
		return nil
	}
	var existing *UpstreamError
	if errors.As(err, &existing) {
		return err
	}
	return &UpstreamError{Service: svc, Err: err}
}

// Rejected wraps err as a refusal by svc carrying a user-facing message.
func Rejected(svc Service, message string, err error) error {
	if err == nil {
		err = errors.New(message)
	}
	return &UpstreamError{Service: svc, Rejected: true, Message: message, Err: err}
}

// AsUpstream reports whether err carries an UpstreamError and returns it.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// BadRequestError is a request the API itself refuses: missing fields, bad
// JSON, invalid values.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func BadRequest(message string) error {
	return &BadRequestError{Message: message}
}

// AsBadRequest reports whether err carries a BadRequestError and returns it.
func AsBadRequest(err error) (*BadRequestError, bool) {
	var br *BadRequestError
	if errors.As(err, &br) {
		return br, true
	}
	return nil, false
}
