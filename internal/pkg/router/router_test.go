package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/controllers"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/app/models"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/docs"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/auth"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/billing"
	"github.com/SamCourtneyTech/Summoner-x-Serum-2/internal/pkg/credits"
)

type staticTokens map[string]string

func (s staticTokens) Validate(_ context.Context, token string) (auth.Claims, error) {
	if sub, ok := s[token]; ok {
		return auth.Claims{Subject: sub}, nil
	}
	return auth.Claims{}, auth.ErrInvalidToken
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, input string) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"input": input})
}

func newTestApp(t *testing.T, limit int) (*fiber.App, *credits.MemoryStore) {
	t.Helper()
	t.Setenv("DOCS_ENABLED", "false")

	store := credits.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), credits.Account{Subject: "sub-123", Credits: 100}))
	tokens := staticTokens{"tok-123": "sub-123"}

	svc := &Services{
		Handlers: &controllers.Handlers{
			Store:     store,
			Gate:      credits.NewGate(store, credits.GateConfig{Cost: 1}),
			Generator: echoGenerator{},
			Webhooks:  billing.NewFulfiller(store, "whsec_router"),
		},
		Tokens:  tokens,
		Limiter: LimiterConfig{Max: limit, Window: time.Minute},
	}
	return NewApplication(svc), store
}

func post(t *testing.T, app *fiber.App, path, token, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRoutes_AreDocumented(t *testing.T) {
	app, _ := newTestApp(t, 30)
	doc, err := openapi3.NewLoader().LoadFromData(docs.OpenAPI)
	require.NoError(t, err)

	for _, route := range app.GetRoutes(true) {
		if route.Method == fiber.MethodHead || strings.HasPrefix(route.Path, "/docs") || route.Path == "/" {
			continue
		}
		item := doc.Paths.Find(route.Path)
		require.NotNil(t, item, "route %s %s is not documented", route.Method, route.Path)
		assert.NotNil(t, item.GetOperation(route.Method), "route %s %s is not documented", route.Method, route.Path)
	}
}

func TestProtectedRoutes_RequireBearer(t *testing.T) {
	app, store := newTestApp(t, 30)

	for _, path := range []string{"/get-credits", "/purchase-credits", "/generate-parameters"} {
		resp := post(t, app, path, "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := post(t, app, "/generate-parameters", "tok-123", `{"input":"bass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	acc, err := store.Get(context.Background(), "sub-123")
	require.NoError(t, err)
	assert.EqualValues(t, 99, acc.Credits)
}

func TestRateLimiter(t *testing.T) {
	app, _ := newTestApp(t, 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, post(t, app, "/get-credits", "tok-123", "").StatusCode)
	}
	resp := post(t, app, "/get-credits", "tok-123", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "rate_limited", body.Error)

	// the webhook is never limited
	assert.NotEqual(t, http.StatusTooManyRequests, post(t, app, "/webhook", "", "{}").StatusCode)
}

func TestRateLimiter_KeyedOnAccountNotForwardedFor(t *testing.T) {
	app, store := newTestApp(t, 2)

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/generate-parameters", bytes.NewBufferString(`{"input":"pad"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer tok-123")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d, 203.0.113.9", i))
		req.Header.Set("CF-Connecting-IP", fmt.Sprintf("192.0.2.%d", i))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429, 429, 429}, statuses)

	acc, err := store.Get(context.Background(), "sub-123")
	require.NoError(t, err)
	assert.EqualValues(t, 98, acc.Credits)
}

func TestRateLimiter_UnauthenticatedRequestsNeverReachLimiter(t *testing.T) {
	app, _ := newTestApp(t, 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, post(t, app, "/get-credits", "tok-bad", "").StatusCode)
	}
	assert.Equal(t, http.StatusOK, post(t, app, "/get-credits", "tok-123", "").StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, 30)
	resp := post(t, app, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body.Error)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, 30)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoadLimiterConfig(t *testing.T) {
	t.Setenv("CACHE_HOST", "")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	cfg := LoadLimiterConfig()
	assert.Equal(t, 5, cfg.Max)
	assert.Equal(t, 10*time.Second, cfg.Window)
	assert.Nil(t, cfg.Storage)
}

func TestDocs_ServesEmbeddedSpec(t *testing.T) {
	t.Setenv("DOCS_ENABLED", "true")
	app := NewApplication(&Services{Handlers: &controllers.Handlers{}, Tokens: staticTokens{}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/docs", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/openapi.yml", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
