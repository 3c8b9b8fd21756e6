package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6"`
}

type ConfirmSignupRequest struct {
	Email            string `json:"email" validate:"required,email"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// LoginRequest accepts either an authorization code with its redirect URI or
// an email and password.
type LoginRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,uri"`
}

func (r *LoginRequest) HasCode() bool {
	return strings.TrimSpace(r.Code) != "" && strings.TrimSpace(r.RedirectURI) != ""
}

func (r *LoginRequest) HasPassword() bool {
	return strings.TrimSpace(r.Email) != "" && r.Password != ""
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PurchaseRequest: Amount is in cents, e.g. 500 = $5.
type PurchaseRequest struct {
	Amount  int64 `json:"amount" validate:"required,gt=0"`
	Credits int64 `json:"credits" validate:"required,gt=0"`
}

type GenerateRequest struct {
	Input string `json:"input" validate:"required,max=2000"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type CheckoutResponse struct {
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

type CreditsResponse struct {
	Credits int64 `json:"credits"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Validate checks v's validate tags and returns a message naming the first
// offending field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "email":
		return fmt.Errorf("%s must be a valid email address", field)
	case "gt":
		return fmt.Errorf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

func jsonFieldName(goName string) string {
	switch goName {
	case "ConfirmationCode":
		return "confirmation_code"
	case "RedirectURI":
		return "redirect_uri"
	case "RefreshToken":
		return "refresh_token"
	default:
		return strings.ToLower(goName)
	}
}
