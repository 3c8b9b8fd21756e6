package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
)

const (
	metadataUserID  = "user_id"
	metadataCredits = "credits"
)

var (
	ErrBadSignature          = errors.New("webhook signature verification failed")
	ErrMalformedNotification = errors.New("malformed payment notification")
)

// State is where a notification ended up.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateVerified  State = "VERIFIED"
	// StateRejected means the signature did not verify; the payload was never parsed.
	StateRejected  State = "REJECTED"
	StateIgnored   State = "IGNORED"
	StateMalformed State = "MALFORMED"
	StateFulfilled State = "FULFILLED"
	StateDuplicate State = "DUPLICATE"
	StateFailed    State = "FAILED"
)

// Result is the outcome of one notification, ready to be written back to the
// sender. A non-2xx Status makes Stripe redeliver.
type Result struct {
	State     State
	Status    int
	Message   string
	EventID   string
	SessionID string
	Subject   string
	Credits   int64
	Balance   int64
}

// Archiver stores verified payloads for later inspection.
type Archiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

// Fulfiller turns verified checkout completions into credit increments.
type Fulfiller struct {
	store     credits.Store
	secret    string
	tolerance time.Duration
	archiver  Archiver
}

type FulfillerOption func(*Fulfiller)

func WithArchiver(a Archiver) FulfillerOption {
	return func(f *Fulfiller) { f.archiver = a }
}

func WithTolerance(d time.Duration) FulfillerOption {
	return func(f *Fulfiller) { f.tolerance = d }
}

func NewFulfiller(store credits.Store, webhookSecret string, opts ...FulfillerOption) *Fulfiller {
	f := &Fulfiller{store: store, secret: webhookSecret, tolerance: DefaultSignatureTolerance}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle processes one webhook delivery. The signature is checked against the
// raw bytes before anything is parsed. The returned error is nil for every
// 2xx outcome.
func (f *Fulfiller) Handle(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	res := Result{State: StateReceived}

	if err := VerifyStripeWebhookSignature(payload, signatureHeader, f.secret, f.tolerance); err != nil {
		res.State = StateRejected
		res.Status = http.StatusBadRequest
		if errors.Is(err, errMissingSignature) {
			res.Message = "Missing Stripe-Signature header"
		} else {
			res.Message = "Invalid signature"
		}
		log.Warnf("[Billing] rejected webhook: %v", err)
		return res, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	res.State = StateVerified

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return malformed(res, "Invalid JSON payload", err)
	}
	res.EventID = event.ID
	f.archive(ctx, event, payload)

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		res.State = StateIgnored
		res.Status = http.StatusOK
		res.Message = "Event received"
		log.Infof("[Billing] ignoring webhook event %s of type %s", event.ID, event.Type)
		return res, nil
	}

	if event.Data == nil {
		return malformed(res, "Missing metadata", errors.New("event has no data object"))
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return malformed(res, "Invalid JSON payload", err)
	}
	res.SessionID = cs.ID

	subject, amount, err := purchaseFromMetadata(cs.Metadata)
	if err != nil {
		return malformed(res, "Missing metadata", err)
	}
	res.Subject = subject
	res.Credits = amount

	balance, err := f.store.IncrementIfExists(ctx, subject, amount, cs.ID)
	switch {
	case err == nil:
		res.State = StateFulfilled
		res.Status = http.StatusOK
		res.Message = "Credits updated"
		res.Balance = balance
		log.Infof("[Billing] credited %d to subject %s for session %s, balance %d", amount, subject, cs.ID, balance)
		return res, nil
	case errors.Is(err, credits.ErrAlreadyFulfilled):
		res.State = StateDuplicate
		res.Status = http.StatusOK
		res.Message = "Credits already applied"
		res.Balance = balance
		log.Infof("[Billing] session %s already fulfilled for subject %s, skipping", cs.ID, subject)
		return res, nil
	default:
		res.State = StateFailed
		res.Status = http.StatusInternalServerError
		res.Message = fmt.Sprintf("Failed to update credits: %v", err)
		log.Errorf("[Billing] crediting subject %s for session %s failed: %v", subject, cs.ID, err)
		return res, err
	}
}

func (f *Fulfiller) archive(ctx context.Context, event stripe.Event, payload []byte) {
	if f.archiver == nil {
		return
	}
	id := event.ID
	if id == "" {
		id = fmt.Sprintf("unidentified-%d", time.Now().UnixNano())
	}
	key := fmt.Sprintf("%s/%s.json", time.Now().UTC().Format("2006/01/02"), id)
	if err := f.archiver.Archive(ctx, key, payload); err != nil {
		log.Warnf("[Billing] archiving webhook %s failed: %v", id, err)
	}
}

func malformed(res Result, message string, cause error) (Result, error) {
	res.State = StateMalformed
	res.Status = http.StatusBadRequest
	res.Message = message
	log.Warnf("[Billing] malformed webhook %s: %v", res.EventID, cause)
	return res, fmt.Errorf("%w: %v", ErrMalformedNotification, cause)
}

func purchaseFromMetadata(md map[string]string) (string, int64, error) {
	subject := strings.TrimSpace(md[metadataUserID])
	if subject == "" {
		return "", 0, errors.New("metadata user_id is missing")
	}
	raw := strings.TrimSpace(md[metadataCredits])
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("metadata credits %q is not a number", raw)
	}
	if n <= 0 {
		return "", 0, fmt.Errorf("metadata credits must be positive, got %d", n)
	}
	return subject, n, nil
}
