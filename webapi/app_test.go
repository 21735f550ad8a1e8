package webapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/amirasaad/vatm/infra/repository/memory"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/amirasaad/vatm/webapi/testutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downUoW struct {
	repository.UnitOfWork
}

func (downUoW) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	a, f, _ := testutils.NewApp(testutils.TestConfig(), memory.NewUoW(memory.NewStore()))
	defer a.Close()

	resp := testutils.MakeRequest(f, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var data map[string]string
	_, err := testutils.Decode(resp, &data)
	require.NoError(t, err)
	assert.Equal(t, "up", data["status"])
}

func TestHealthStoreDown(t *testing.T) {
	a, f, _ := testutils.NewApp(testutils.TestConfig(), downUoW{memory.NewUoW(memory.NewStore())})
	defer a.Close()

	resp := testutils.MakeRequest(f, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	pd, err := testutils.DecodeProblem(resp)
	require.NoError(t, err)
	assert.NotContains(t, pd.Detail, "connection refused")
}

func TestRateLimit(t *testing.T) {
	cfg := testutils.TestConfig()
	cfg.RateLimit.MaxRequests = 3
	cfg.RateLimit.Window = time.Minute
	a, f, _ := testutils.NewApp(cfg, memory.NewUoW(memory.NewStore()))
	defer a.Close()

	for range 3 {
		resp := testutils.MakeRequest(f, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close() //nolint:errcheck
	}
	resp := testutils.MakeRequest(f, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close() //nolint:errcheck
}

func TestUnknownRoute(t *testing.T) {
	a, f, _ := testutils.NewApp(testutils.TestConfig(), memory.NewUoW(memory.NewStore()))
	defer a.Close()

	resp := testutils.MakeRequest(f, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	pd, err := testutils.DecodeProblem(resp)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, pd.Status)
}

func TestIdempotencyDisabled(t *testing.T) {
	cfg := testutils.TestConfig()
	cfg.Idempotency.Enabled = false
	a, f, _ := testutils.NewApp(cfg, memory.NewUoW(memory.NewStore()))
	defer a.Close()
	require.NoError(t, a.Ledger.SeedDemo(t.Context()))

	resp := testutils.MakeRequest(f, http.MethodPost, "/auth/login", map[string]string{"number": "1234", "pin": "1234"}, "")
	var data struct {
		Token string `json:"token"`
	}
	_, err := testutils.Decode(resp, &data)
	require.NoError(t, err)

	for range 2 {
		resp := testutils.MakeRequest(f, http.MethodPost, "/accounts/1234/deposit", map[string]string{"amount": "1"}, data.Token,
			"Idempotency-Key", "same")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Idempotent-Replayed"))
		resp.Body.Close() //nolint:errcheck
	}
	balance, err := a.Ledger.GetBalance(t.Context(), "1234")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5000002)), balance.String())
}
