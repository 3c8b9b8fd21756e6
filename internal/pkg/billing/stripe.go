package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/env"
)

const (
	defaultSuccessURL = "https://summoner.app/success?session_id={CHECKOUT_SESSION_ID}"
	defaultCancelURL  = "https://summoner.app/cancel"
	checkoutCurrency  = "usd"
)

// StripeConfig holds the payment processor settings.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	ProductID        string
	SuccessURL       string
	CancelURL        string
	WebhookTolerance time.Duration
	// APIURL overrides the Stripe API base URL (stripe-mock, tests).
	APIURL string
}

func LoadStripeConfig() (*StripeConfig, error) {
	cfg := &StripeConfig{
		SecretKey:        strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret:    strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		ProductID:        strings.TrimSpace(env.GetEnv("STRIPE_PRODUCT_ID", "")),
		SuccessURL:       strings.TrimSpace(env.GetEnv("STRIPE_SUCCESS_URL", defaultSuccessURL)),
		CancelURL:        strings.TrimSpace(env.GetEnv("STRIPE_CANCEL_URL", defaultCancelURL)),
		WebhookTolerance: env.GetDuration("STRIPE_WEBHOOK_TOLERANCE", DefaultSignatureTolerance),
		APIURL:           strings.TrimSpace(env.GetEnv("STRIPE_API_URL", "")),
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.ProductID == "" {
		return nil, errors.New("STRIPE_PRODUCT_ID is required")
	}
	return cfg, nil
}

// PurchaseIntent is what a buyer asked for: amount is charged in cents and
// credits are granted once the payment completes.
type PurchaseIntent struct {
	Subject string
	Amount  int64
	Credits int64
}

// Checkout is a hosted payment page the client redirects the buyer to.
type Checkout struct {
	SessionID string
	URL       string
}

type StripeClient struct {
	sessions   *session.Client
	productID  string
	successURL string
	cancelURL  string
}

func NewStripeClient(cfg *StripeConfig) *StripeClient {
	backend := stripe.GetBackend(stripe.APIBackend)
	if cfg.APIURL != "" {
		backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(cfg.APIURL),
			MaxNetworkRetries: stripe.Int64(0),
		})
	}
	return &StripeClient{
		sessions:   &session.Client{B: backend, Key: cfg.SecretKey},
		productID:  cfg.ProductID,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

func NewStripeClientFromEnv() (*StripeClient, error) {
	cfg, err := LoadStripeConfig()
	if err != nil {
		return nil, err
	}
	return NewStripeClient(cfg), nil
}

// CreateCheckout opens a one-off card payment session for intent. The subject
// and credit count travel in the session metadata and come back in the
// completion webhook.
func (c *StripeClient) CreateCheckout(ctx context.Context, intent PurchaseIntent) (*Checkout, error) {
	if strings.TrimSpace(intent.Subject) == "" {
		return nil, errors.New("purchase subject is required")
	}
	if intent.Amount <= 0 || intent.Credits <= 0 {
		return nil, fmt.Errorf("amount and credits must be positive (amount=%d credits=%d)", intent.Amount, intent.Credits)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(checkoutCurrency),
					Product:    stripe.String(c.productID),
					UnitAmount: stripe.Int64(intent.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserID, intent.Subject)
	params.AddMetadata(metadataCredits, strconv.FormatInt(intent.Credits, 10))

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, stripeError(err)
	}
	log.Infof("[Billing] checkout session %s created for subject %s (%d credits)", s.ID, intent.Subject, intent.Credits)
	return &Checkout{SessionID: s.ID, URL: s.URL}, nil
}

// stripeError separates requests Stripe refused (shown to the caller) from
// transport and server failures.
func stripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		switch se.Type {
		case stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeCard:
			return apierror.Rejected(apierror.PaymentProcessor, se.Msg, err)
		}
	}
	return apierror.Upstream(apierror.PaymentProcessor, err)
}
