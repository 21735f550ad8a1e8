// Package testutils builds fully wired HTTP applications for handler tests.
package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	infra_cache "github.com/amirasaad/vatm/infra/cache"
	infra_eventbus "github.com/amirasaad/vatm/infra/eventbus"
	"github.com/amirasaad/vatm/infra/repository/memory"
	"github.com/amirasaad/vatm/pkg/app"
	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/amirasaad/vatm/webapi"
	"github.com/amirasaad/vatm/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// TestConfig returns a configuration suitable for in-process tests.
func TestConfig() *config.App {
	return &config.App{
		Env:    "test",
		Server: &config.Server{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		Log:    &config.Log{Format: "text"},
		DB:     &config.DB{},
		Auth: &config.Auth{Jwt: &config.Jwt{
			Secret: "test-secret",
			Expiry: time.Hour,
		}},
		Credential:  &config.Credential{BcryptCost: bcrypt.MinCost, Length: 4},
		Ledger:      &config.Ledger{HistoryDefaultLimit: 10, HistoryMaxLimit: 100},
		Redis:       &config.Redis{},
		Kafka:       &config.Kafka{},
		EventBus:    &config.EventBus{Driver: "memory"},
		RateLimit:   &config.RateLimit{MaxRequests: 10000, Window: time.Minute},
		Idempotency: &config.Idempotency{Enabled: true, Store: "memory", TTL: time.Hour},
	}
}

// AppTestSuite runs handler tests against an in-memory store seeded with the demo accounts.
type AppTestSuite struct {
	suite.Suite
	App    *app.App
	Fiber  *fiber.App
	Bus    *infra_eventbus.MemoryEventBus
	Config *config.App
}

func (s *AppTestSuite) SetupTest() {
	s.Config = TestConfig()
	s.App, s.Fiber, s.Bus = NewApp(s.Config, memory.NewUoW(memory.NewStore()))
	s.Require().NoError(s.App.Ledger.SeedDemo(s.T().Context()))
	s.T().Cleanup(s.App.Close)
}

// NewApp wires an application over uow with in-memory bus and cache.
func NewApp(cfg *config.App, uow repository.UnitOfWork) (*app.App, *fiber.App, *infra_eventbus.MemoryEventBus) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := infra_eventbus.NewWithMemory(logger)
	respCache := infra_cache.NewMemoryCache()
	a := app.New(&app.Deps{
		Uow:           uow,
		EventBus:      bus,
		ResponseCache: respCache,
		Logger:        logger,
		Closers:       []func() error{func() error { respCache.Close(); return nil }},
	}, cfg)
	return a, webapi.SetupApp(a), bus
}

// MakeRequest performs a request against f. body is marshalled to JSON unless nil.
func MakeRequest(f *fiber.App, method, path string, body any, token string, headers ...string) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.Test(req, 10000)
	if err != nil {
		panic(err)
	}
	return resp
}

// Decode reads the success envelope and unmarshals its data into out.
func Decode(resp *http.Response, out any) (common.Response, error) {
	defer resp.Body.Close() //nolint: errcheck
	var env struct {
		common.Response
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return common.Response{}, err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Response, err
		}
	}
	return env.Response, nil
}

// DecodeProblem reads an RFC 9457 problem body.
func DecodeProblem(resp *http.Response) (common.ProblemDetails, error) {
	defer resp.Body.Close() //nolint: errcheck
	var pd common.ProblemDetails
	err := json.NewDecoder(resp.Body).Decode(&pd)
	return pd, err
}

// Token logs in through the HTTP API and returns the bearer token.
func (s *AppTestSuite) Token(number, pin string) string {
	resp := MakeRequest(s.Fiber, http.MethodPost, "/auth/login", map[string]string{"number": number, "pin": pin}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var data struct {
		Token string `json:"token"`
	}
	_, err := Decode(resp, &data)
	s.Require().NoError(err)
	s.Require().NotEmpty(data.Token)
	return data.Token
}

// Demo account numbers and PINs seeded by SetupTest.
var (
	Source      = ledger.DemoAccounts[0]
	Destination = ledger.DemoAccounts[1]
)

// MakeRequest performs a request against the suite's application.
func (s *AppTestSuite) MakeRequest(method, path string, body any, token string, headers ...string) *http.Response {
	return MakeRequest(s.Fiber, method, path, body, token, headers...)
}
