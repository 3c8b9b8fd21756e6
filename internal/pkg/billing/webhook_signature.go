package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

// DefaultSignatureTolerance is how old a signed timestamp may be before the
// notification is treated as a replay.
const DefaultSignatureTolerance = webhook.DefaultTolerance

var errMissingSignature = errors.New("missing Stripe-Signature header")

// VerifyStripeWebhookSignature checks the Stripe-Signature header against the
// raw request body. The body must be the exact bytes received: any re-encoding
// invalidates the signature.
func VerifyStripeWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration) error {
	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return errMissingSignature
	}
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is not configured")
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}
	return webhook.ValidatePayloadWithTolerance(payload, sig, secret, tolerance)
}
