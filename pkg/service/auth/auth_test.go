package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/service/auth"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, number, pin string) (*ledger.AccountView, error) {
	args := m.Called(ctx, number, pin)
	view, _ := args.Get(0).(*ledger.AccountView)
	return view, args.Error(1)
}

var jwtCfg = &config.Jwt{Secret: "unit-test-secret", Expiry: time.Minute}

func newService(a auth.Authenticator) *auth.Service {
	return auth.New(a, jwtCfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func parse(t *testing.T, signed string) *jwt.Token {
	t.Helper()
	token, err := jwt.Parse(signed, func(*jwt.Token) (any, error) { return []byte(jwtCfg.Secret), nil })
	require.NoError(t, err)
	return token
}

func TestLogin_Success(t *testing.T) {
	a := &mockAuthenticator{}
	a.On("Authenticate", mock.Anything, "1234", "1234").Return(&ledger.AccountView{Number: "1234"}, nil).Once()
	svc := newService(a)

	signed, view, err := svc.Login(context.Background(), "1234", "1234")
	require.NoError(t, err)
	assert.Equal(t, "1234", view.Number)

	token := parse(t, signed)
	assert.True(t, token.Valid)
	number, err := svc.AccountNumber(token)
	require.NoError(t, err)
	assert.Equal(t, "1234", number)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "1234", sub)
	a.AssertExpectations(t)
}

func TestLogin_InvalidCredential(t *testing.T) {
	a := &mockAuthenticator{}
	a.On("Authenticate", mock.Anything, "1234", "0000").Return(nil, domain.ErrInvalidCredential).Once()
	svc := newService(a)

	signed, view, err := svc.Login(context.Background(), "1234", "0000")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	assert.Empty(t, signed)
	assert.Nil(t, view)
}

func TestAuthorize(t *testing.T) {
	svc := newService(&mockAuthenticator{})
	signed, err := svc.GenerateToken("1234")
	require.NoError(t, err)
	token := parse(t, signed)

	assert.NoError(t, svc.Authorize(token, "1234"))
	assert.ErrorIs(t, svc.Authorize(token, "123456789"), domain.ErrUnauthorizedAccess)
	assert.ErrorIs(t, svc.Authorize(nil, "1234"), auth.ErrUnauthenticated)

	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1234"})
	_, err = svc.AccountNumber(bare)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}
