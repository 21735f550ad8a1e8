// Package auth issues and reads session tokens for account holders.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/amirasaad/vatm/pkg/service/ledger"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a request carries no usable session.
var ErrUnauthenticated = errors.New("missing or invalid session")

const claimAccount = "account_number"

// Authenticator checks an account number and PIN pair.
type Authenticator interface {
	Authenticate(ctx context.Context, number, pin string) (*ledger.AccountView, error)
}

// Service logs account holders in with HS256 JWTs.
type Service struct {
	accounts Authenticator
	cfg      *config.Jwt
	logger   *slog.Logger
	now      func() time.Time
}

func New(accounts Authenticator, cfg *config.Jwt, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		cfg:      cfg,
		logger:   logger.With("service", "auth"),
		now:      time.Now,
	}
}

// Login verifies the PIN and returns a signed token for the account.
func (s *Service) Login(ctx context.Context, number, pin string) (string, *ledger.AccountView, error) {
	log := s.logger.With("context", "Login", "account", number)
	log.Debug("Login called")

	view, err := s.accounts.Authenticate(ctx, number, pin)
	if err != nil {
		log.Warn("Login failed", "error", err)
		return "", nil, err
	}
	token, err := s.GenerateToken(view.Number)
	if err != nil {
		return "", nil, err
	}
	log.Info("Login successful")
	return token, view, nil
}

// GenerateToken signs a token whose subject is the account number.
func (s *Service) GenerateToken(number string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        number,
		claimAccount: number,
		"iat":        now.Unix(),
		"exp":        now.Add(s.cfg.Expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Error("GenerateToken failed", "account", number, "error", err)
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// AccountNumber extracts the account number from a validated token.
func (s *Service) AccountNumber(token *jwt.Token) (string, error) {
	if token == nil {
		return "", ErrUnauthenticated
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthenticated
	}
	number, ok := claims[claimAccount].(string)
	if !ok || number == "" {
		return "", ErrUnauthenticated
	}
	return number, nil
}

// Authorize checks that the session belongs to the account it is acting on.
func (s *Service) Authorize(token *jwt.Token, number string) error {
	owner, err := s.AccountNumber(token)
	if err != nil {
		return err
	}
	if owner != number {
		s.logger.Warn("Foreign account access denied", "session", owner, "account", number)
		return domain.ErrUnauthorizedAccess
	}
	return nil
}
