package ledger

import (
	"context"
	"errors"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/shopspring/decimal"
)

// DemoAccounts are the two accounts the ATM ships with for demonstrations.
var DemoAccounts = []NewAccount{
	{Number: "1234", Holder: "Mauro", PIN: "1234", InitialBalance: decimal.NewFromInt(5000000)},
	{Number: "123456789", Holder: "Cuenta Destino", PIN: "9999", InitialBalance: decimal.NewFromInt(1000000)},
}

// SeedDemo opens the demo accounts, skipping the ones that already exist.
func (s *Service) SeedDemo(ctx context.Context) error {
	for _, req := range DemoAccounts {
		_, err := s.OpenAccount(ctx, req)
		switch {
		case err == nil:
			s.logger.Info("Demo account opened", "account", req.Number)
		case errors.Is(err, domain.ErrAccountExists):
			s.logger.Debug("Demo account already present", "account", req.Number)
		default:
			return err
		}
	}
	return nil
}
