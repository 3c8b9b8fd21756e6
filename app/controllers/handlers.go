package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/identity"
)

const DefaultUpstreamTimeout = 20 * time.Second

// IdentityService is implemented by *identity.Client.
type IdentityService interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	PasswordLogin(ctx context.Context, email, password string) (*identity.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*identity.Tokens, error)
}

// CheckoutService is implemented by *billing.StripeClient.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, intent billing.PurchaseIntent) (*billing.Checkout, error)
}

// ParameterGenerator is implemented by *generator.Client.
type ParameterGenerator interface {
	Generate(ctx context.Context, input string) (json.RawMessage, error)
}

// WebhookHandler is implemented by *billing.Fulfiller.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (billing.Result, error)
}

// Handlers serves the HTTP API. All collaborators are built once at startup
// and passed in.
type Handlers struct {
	Identity  IdentityService
	Store     credits.Store
	Gate      *credits.Gate
	Checkout  CheckoutService
	Generator ParameterGenerator
	Webhooks  WebhookHandler

	// UpstreamTimeout bounds every call to an external service.
	UpstreamTimeout time.Duration
}

func (h *Handlers) upstreamContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := h.UpstreamTimeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return context.WithTimeout(parent, timeout)
}
