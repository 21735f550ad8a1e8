//go:build integration

package eventbus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/vatm/pkg/domain/events"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	testcontainerskafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// setupKafkaBus starts a Kafka container and returns a bus connected to it.
func setupKafkaBus(tb testing.TB) *KafkaEventBus {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	kafkaContainer, err := testcontainerskafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = kafkaContainer.Terminate(context.Background()) })

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(tb, err)

	cfg := DefaultKafkaEventBusConfig()
	cfg.GroupID = "vatm-test"
	bus, err := NewWithKafka(strings.Join(brokers, ","), quietLogger(), cfg)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestKafkaBusHandlerReceivesEvent(t *testing.T) {
	bus := setupKafkaBus(t)

	received := make(chan *events.MovementRecorded, 1)
	bus.Register(events.EventTypeMovementRecorded, func(_ context.Context, e events.Event) error {
		received <- e.(*events.MovementRecorded)
		return nil
	})

	sent := sampleEvent()
	require.NoError(t, bus.Emit(context.Background(), sent))

	select {
	case got := <-received:
		require.Equal(t, sent.MovementID, got.MovementID)
		require.Equal(t, "1234", got.AccountNumber)
	case <-time.After(30 * time.Second):
		t.Fatal("handler did not receive event in time")
	}
}

func TestKafkaBusFailedHandlerGoesToDLQ(t *testing.T) {
	bus := setupKafkaBus(t)

	bus.Register(events.EventTypeMovementRecorded, func(context.Context, events.Event) error {
		return errors.New("simulated failure")
	})

	sent := sampleEvent()
	require.NoError(t, bus.Emit(context.Background(), sent))

	dlqReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     bus.brokers,
		Topic:       nameFor(bus.config.TopicPrefix, events.EventTypeMovementRecorded) + ".dlq",
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	defer func() { _ = dlqReader.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := dlqReader.FetchMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "1234", string(msg.Key))
	evt, err := decodeEnvelope(msg.Value)
	require.NoError(t, err)
	require.Equal(t, sent.MovementID, evt.(*events.MovementRecorded).MovementID)
}
