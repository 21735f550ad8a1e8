package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	infra_eventbus "github.com/amirasaad/vatm/infra/eventbus"
	"github.com/amirasaad/vatm/pkg/domain/account"
	"github.com/amirasaad/vatm/pkg/domain/events"
	"github.com/amirasaad/vatm/pkg/eventbus"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunSmokeTest publishes a MovementRecorded event on a real broker and waits
// for it to come back through the bus's consumer.
func RunSmokeTest(driver string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var (
		bus   eventbus.Bus
		closeBus func() error
		err   error
	)
	switch driver {
	case "kafka":
		brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
		if brokers == "" {
			brokers = "localhost:9092"
		}
		cfg := infra_eventbus.DefaultKafkaEventBusConfig()
		cfg.GroupID = "vatm-smoketest"
		cfg.TopicPrefix = "vatm.smoketest"
		var kb *infra_eventbus.KafkaEventBus
		kb, err = infra_eventbus.NewWithKafka(brokers, logger, cfg)
		bus, closeBus = kb, func() error { return kb.Close() }
	case "redis":
		url := strings.TrimSpace(os.Getenv("REDIS_URL"))
		if url == "" {
			url = "redis://localhost:6379/0"
		}
		cfg := infra_eventbus.DefaultRedisEventBusConfig()
		cfg.StreamPrefix = "vatm.smoketest"
		var rb *infra_eventbus.RedisEventBus
		rb, err = infra_eventbus.NewWithRedis(url, logger, cfg)
		bus, closeBus = rb, func() error { return rb.Close() }
	default:
		return fmt.Errorf("unknown driver %q (want kafka or redis)", driver)
	}
	if err != nil {
		logger.Error("connect failed", "driver", driver, "error", err)
		return err
	}
	defer func() { _ = closeBus() }()

	received := make(chan *events.MovementRecorded, 1)
	bus.Register(events.EventTypeMovementRecorded, func(_ context.Context, e events.Event) error {
		if mr, ok := e.(*events.MovementRecorded); ok {
			select {
			case received <- mr:
			default:
			}
		}
		return nil
	})

	sent := events.NewMovementRecorded("1234", &account.Movement{
		ID:               uuid.New(),
		AccountID:        uuid.New(),
		Kind:             account.KindDeposit,
		Amount:           decimal.RequireFromString("1.00"),
		ResultingBalance: decimal.RequireFromString("1.00"),
		Description:      "smoke test",
		CreatedAt:        time.Now().UTC(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bus.Emit(ctx, sent); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "movement", sent.MovementID)

	select {
	case got := <-received:
		if got.MovementID != sent.MovementID {
			logger.Info("consumed an older event, broker state is not clean", "movement", got.MovementID)
		}
		logger.Info("consumed", "movement", got.MovementID, "amount", got.Amount.StringFixed(2))
	case <-ctx.Done():
		return fmt.Errorf("no event consumed: %w", ctx.Err())
	}

	logger.Info("event bus smoke test passed", "driver", driver)
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	driver := "kafka"
	if len(os.Args) > 1 {
		driver = os.Args[1]
	}
	if err := RunSmokeTest(driver); err != nil {
		os.Exit(1)
	}
}
