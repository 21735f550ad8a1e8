package app

import (
	"context"
	"fmt"

	"github.com/amirasaad/vatm/pkg/domain/events"
)

// setupEventBus registers the in-process subscribers.
func (a *App) setupEventBus() {
	logger := a.Deps.Logger.With("handler", "movement_audit")
	a.Deps.EventBus.Register(
		events.EventTypeMovementRecorded,
		func(_ context.Context, e events.Event) error {
			mv, ok := e.(*events.MovementRecorded)
			if !ok {
				return fmt.Errorf("unexpected event %T", e)
			}
			logger.Info("Movement recorded",
				"account", mv.AccountNumber,
				"movement", mv.MovementID,
				"kind", mv.Kind,
				"amount", mv.Amount.StringFixed(2),
				"resulting_balance", mv.ResultingBalance.StringFixed(2),
			)
			return nil
		},
	)
}
