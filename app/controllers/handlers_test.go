package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/apierror"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/auth"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/identity"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/middleware"
)

const webhookSecret = "whsec_controller_test"

type fakeValidator map[string]string

func (f fakeValidator) Validate(_ context.Context, token string) (auth.Claims, error) {
	sub, ok := f[token]
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return auth.Claims{Subject: sub, TokenUse: "access"}, nil
}

type fakeIdentity struct {
	signUp        func(email, password string) (string, error)
	confirmSignUp func(email, code string) error
	passwordLogin func(email, password string) (*identity.Tokens, error)
	refresh       func(token string) (*identity.Tokens, error)
	exchangeCode  func(code, redirectURI string) (*identity.Tokens, error)
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (string, error) {
	return f.signUp(email, password)
}

func (f *fakeIdentity) ConfirmSignUp(_ context.Context, email, code string) error {
	return f.confirmSignUp(email, code)
}

func (f *fakeIdentity) PasswordLogin(_ context.Context, email, password string) (*identity.Tokens, error) {
	return f.passwordLogin(email, password)
}

func (f *fakeIdentity) Refresh(_ context.Context, token string) (*identity.Tokens, error) {
	return f.refresh(token)
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code, redirectURI string) (*identity.Tokens, error) {
	return f.exchangeCode(code, redirectURI)
}

type fakeCheckout struct {
	create func(billing.PurchaseIntent) (*billing.Checkout, error)
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, intent billing.PurchaseIntent) (*billing.Checkout, error) {
	return f.create(intent)
}

type fakeGenerator struct {
	calls    atomic.Int32
	generate func(input string) (json.RawMessage, error)
}

func (f *fakeGenerator) Generate(_ context.Context, input string) (json.RawMessage, error) {
	f.calls.Add(1)
	return f.generate(input)
}

type testEnv struct {
	app       *fiber.App
	handlers  *Handlers
	store     *credits.MemoryStore
	identity  *fakeIdentity
	checkout  *fakeCheckout
	generator *fakeGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := credits.NewMemoryStore()
	tokens := fakeValidator{"tok-123": "sub-123", "tok-ghost": "sub-ghost"}
	env := &testEnv{
		store:    store,
		identity: &fakeIdentity{},
		checkout: &fakeCheckout{},
		generator: &fakeGenerator{generate: func(string) (json.RawMessage, error) {
			return json.RawMessage(`{"parameters":[{"Parameter Name":"A Level","Value":"75%"}]}`), nil
		}},
	}
	h := &Handlers{
		Identity:  env.identity,
		Store:     store,
		Gate:      credits.NewGate(store, credits.GateConfig{Cost: 1, RefundOnFailure: true}),
		Checkout:  env.checkout,
		Generator: env.generator,
		Webhooks:  billing.NewFulfiller(store, webhookSecret),
	}

	app := fiber.New()
	app.Get("/health", HandleHealth)
	app.Post("/signup", h.HandleSignup)
	app.Post("/confirm-signup", h.HandleConfirmSignup)
	app.Post("/login", h.HandleLogin)
	app.Post("/refresh", h.HandleRefresh)
	app.Post("/webhook", h.HandleStripeWebhook)
	requireAuth := middleware.RequireBearer(tokens, HandleError)
	app.Post("/get-credits", requireAuth, h.HandleGetCredits)
	app.Post("/purchase-credits", requireAuth, h.HandlePurchaseCredits)
	app.Post("/generate-parameters", requireAuth, h.HandleGenerateParameters)
	env.app = app
	env.handlers = h
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) webhook(t *testing.T, payload []byte) (int, map[string]any) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func completedCheckout(t *testing.T, sessionID, subject, credits string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_" + sessionID,
		"type": "checkout.session.completed",
		"data": map[string]any{"object": map[string]any{
			"id":       sessionID,
			"object":   "checkout.session",
			"metadata": map[string]string{"user_id": subject, "credits": credits},
		}},
	})
	require.NoError(t, err)
	return body
}

func TestGenerateParameters_SpendsCreditsThenTopUp(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.Create(context.Background(), credits.Account{Subject: "sub-123", Credits: 3}))

	for want := 2; want >= 0; want-- {
		status, body := e.do(t, http.MethodPost, "/generate-parameters", "tok-123", models.GenerateRequest{Input: "warm pad"})
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "parameters")

		_, credit := e.do(t, http.MethodPost, "/get-credits", "tok-123", nil)
		assert.EqualValues(t, want, credit["credits"])
	}

	status, body := e.do(t, http.MethodPost, "/generate-parameters", "tok-123", models.GenerateRequest{Input: "warm pad"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "Insufficient credits", body["detail"])
	assert.EqualValues(t, 3, e.generator.calls.Load())

	status, body = e.webhook(t, completedCheckout(t, "cs_1", "sub-123", "10"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Credits updated", body["message"])

	status, _ = e.webhook(t, completedCheckout(t, "cs_1", "sub-123", "10"))
	assert.Equal(t, http.StatusOK, status)

	_, credit := e.do(t, http.MethodPost, "/get-credits", "tok-123", nil)
	assert.EqualValues(t, 10, credit["credits"])
}

func TestGenerateParameters_FailureIsRefunded(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.Create(context.Background(), credits.Account{Subject: "sub-123", Credits: 1}))
	e.generator.generate = func(string) (json.RawMessage, error) {
		return nil, apierror.Upstream(apierror.TextGenerator, errors.New("overloaded"))
	}

	status, body := e.do(t, http.MethodPost, "/generate-parameters", "tok-123", models.GenerateRequest{Input: "pad"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "text_generator_error", body["error"])

	acc, err := e.store.Get(context.Background(), "sub-123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, acc.Credits)
}

func TestGenerateParameters_RequestErrors(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.Create(context.Background(), credits.Account{Subject: "sub-123", Credits: 1}))

	tests := []struct {
		name   string
		token  string
		body   any
		status int
		code   string
	}{
		{"no token", "", models.GenerateRequest{Input: "pad"}, http.StatusUnauthorized, "invalid_token"},
		{"bad token", "tok-nope", models.GenerateRequest{Input: "pad"}, http.StatusUnauthorized, "invalid_token"},
		{"unknown account", "tok-ghost", models.GenerateRequest{Input: "pad"}, http.StatusNotFound, "account_not_found"},
		{"empty input", "tok-123", models.GenerateRequest{}, http.StatusBadRequest, "bad_request"},
		{"invalid json", "tok-123", "{not json", http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/generate-parameters", tt.token, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body["error"])
		})
	}

	acc, err := e.store.Get(context.Background(), "sub-123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, acc.Credits)
	assert.Zero(t, e.generator.calls.Load())
}

func TestSignup_CreatesEmptyAccount(t *testing.T) {
	e := newTestEnv(t)
	e.identity.signUp = func(email, password string) (string, error) {
		assert.Equal(t, "a@example.com", email)
		return "sub-new", nil
	}

	status, body := e.do(t, http.MethodPost, "/signup", "", models.SignupRequest{Email: "a@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["status"])

	acc, err := e.store.Get(context.Background(), "sub-new")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", acc.Email)
	assert.Zero(t, acc.Credits)
}

type failingCreateStore struct {
	credits.Store
	err error
}

func (s failingCreateStore) Create(context.Context, credits.Account) error { return s.err }

func TestSignup_StoreFailureAfterProviderSignUpIsLogged(t *testing.T) {
	e := newTestEnv(t)
	e.handlers.Store = failingCreateStore{Store: e.store, err: errors.New("dynamodb throttled")}
	e.identity.signUp = func(string, string) (string, error) { return "sub-orphan", nil }

	logs := &bytes.Buffer{}
	log.SetOutput(logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	status, body := e.do(t, http.MethodPost, "/signup", "", models.SignupRequest{Email: "o@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotEqual(t, "success", body["status"])

	assert.Contains(t, logs.String(), "sub-orphan")
	assert.Contains(t, logs.String(), "summonerctl credits create sub-orphan --email o@example.com")

	_, err := e.store.Get(context.Background(), "sub-orphan")
	assert.ErrorIs(t, err, credits.ErrAccountNotFound)
}

func TestSignup_ProviderRejection(t *testing.T) {
	e := newTestEnv(t)
	e.identity.signUp = func(string, string) (string, error) {
		return "", apierror.Rejected(apierror.IdentityProvider, "User already exists", errors.New("UsernameExistsException"))
	}

	status, body := e.do(t, http.MethodPost, "/signup", "", models.SignupRequest{Email: "a@example.com", Password: "hunter22"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User already exists", body["detail"])
}

func TestSignup_Validation(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.do(t, http.MethodPost, "/signup", "", map[string]string{"email": "nope", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["detail"], "email")
}

func TestConfirmSignup(t *testing.T) {
	e := newTestEnv(t)
	e.identity.confirmSignUp = func(email, code string) error {
		if code != "123456" {
			return apierror.Rejected(apierror.IdentityProvider, "Invalid verification code", errors.New("CodeMismatchException"))
		}
		return nil
	}

	status, _ := e.do(t, http.MethodPost, "/confirm-signup", "", models.ConfirmSignupRequest{Email: "a@example.com", ConfirmationCode: "123456"})
	assert.Equal(t, http.StatusOK, status)

	status, body := e.do(t, http.MethodPost, "/confirm-signup", "", models.ConfirmSignupRequest{Email: "a@example.com", ConfirmationCode: "000000"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid verification code", body["detail"])
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.identity.passwordLogin = func(email, password string) (*identity.Tokens, error) {
		if password != "right" {
			return nil, identity.ErrInvalidCredentials
		}
		return &identity.Tokens{AccessToken: "a", IDToken: "i", RefreshToken: "r"}, nil
	}
	e.identity.exchangeCode = func(code, redirectURI string) (*identity.Tokens, error) {
		assert.Equal(t, "summoner://callback", redirectURI)
		return &identity.Tokens{AccessToken: "a2", IDToken: "i2"}, nil
	}

	status, body := e.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.com", "password": "right"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a", body["access_token"])
	assert.Equal(t, "r", body["refresh_token"])

	status, body = e.do(t, http.MethodPost, "/login", "", map[string]string{"code": "abc", "redirect_uri": "summoner://callback"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a2", body["access_token"])

	status, _ = e.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = e.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid login request", body["detail"])
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	e.identity.refresh = func(token string) (*identity.Tokens, error) {
		if token == "expired" {
			return nil, identity.ErrInvalidCredentials
		}
		return &identity.Tokens{AccessToken: "a3", IDToken: "i3"}, nil
	}

	status, body := e.do(t, http.MethodPost, "/refresh", "", models.RefreshRequest{RefreshToken: "good"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a3", body["access_token"])

	status, body = e.do(t, http.MethodPost, "/refresh", "", models.RefreshRequest{RefreshToken: "expired"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired refresh token", body["detail"])

	status, body = e.do(t, http.MethodPost, "/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Missing refresh token", body["detail"])
}

func TestPurchaseCredits(t *testing.T) {
	e := newTestEnv(t)
	e.checkout.create = func(intent billing.PurchaseIntent) (*billing.Checkout, error) {
		assert.Equal(t, billing.PurchaseIntent{Subject: "sub-123", Amount: 500, Credits: 50}, intent)
		return &billing.Checkout{SessionID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
	}

	status, body := e.do(t, http.MethodPost, "/purchase-credits", "tok-123", models.PurchaseRequest{Amount: 500, Credits: 50})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", body["checkout_url"])

	status, _ = e.do(t, http.MethodPost, "/purchase-credits", "tok-123", models.PurchaseRequest{Amount: 0, Credits: 50})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/purchase-credits", "", models.PurchaseRequest{Amount: 500, Credits: 50})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestGetCredits_UnknownAccount(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.do(t, http.MethodPost, "/get-credits", "tok-ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found", body["detail"])
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.Create(context.Background(), credits.Account{Subject: "sub-123"}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(completedCheckout(t, "cs_1", "sub-123", "10")))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "bad_signature", body.Error)
	assert.Equal(t, "Invalid signature", body.Detail)

	acc, err := e.store.Get(context.Background(), "sub-123")
	require.NoError(t, err)
	assert.Zero(t, acc.Credits)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	status, body := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGetClientIP_IgnoresForwardingHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetClientIP(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.4")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	ip := string(raw)
	assert.NotEmpty(t, ip)
	assert.NotEqual(t, "198.51.100.4", ip)
	assert.NotEqual(t, "203.0.113.7", ip)
	assert.NotEqual(t, "10.0.0.1", ip)
}
