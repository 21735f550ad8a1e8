package eventbus

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/vatm/pkg/domain/events"
	"github.com/amirasaad/vatm/pkg/eventbus"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID       string
	TopicPrefix   string
	SASLUsername  string
	SASLPassword  string
	TLSEnabled    bool
	TLSSkipVerify bool
}

// DefaultKafkaEventBusConfig returns default configuration for KafkaEventBus.
func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return &KafkaEventBusConfig{
		GroupID:     "vatm",
		TopicPrefix: "vatm.events",
	}
}

// KafkaEventBus publishes each event type to its own topic. Messages are keyed
// by account number so one account's movements stay ordered within a partition.
type KafkaEventBus struct {
	brokers []string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	config  *KafkaEventBusConfig
	logger  *slog.Logger

	readersMtx sync.Mutex
	readers    map[events.EventType]*kafka.Reader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a new Kafka-backed event bus.
// brokers: comma-separated broker list (e.g. "localhost:9092,localhost:9093").
func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if config == nil {
		config = DefaultKafkaEventBusConfig()
	}
	if config.GroupID == "" {
		config.GroupID = "vatm"
	}
	if logger == nil {
		logger = slog.Default()
	}

	mechanism, err := saslMechanism(config)
	if err != nil {
		return nil, err
	}
	var tlsConfig *tls.Config
	if config.TLSEnabled {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: config.TLSSkipVerify} //nolint:gosec
	}
	dialer := &kafka.Dialer{Timeout: 5 * time.Second, TLS: tlsConfig, SASLMechanism: mechanism}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parsed...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		Transport:              &kafka.Transport{TLS: tlsConfig, SASL: mechanism},
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers: parsed,
		writer:  writer,
		dialer:  dialer,
		config:  config,
		logger:  logger.With("bus", "kafka"),
		readers: make(map[events.EventType]*kafka.Reader),
		ctx:     ctx,
		cancel:  cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	conn, err := dialer.DialContext(pingCtx, "tcp", parsed[0])
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	_ = conn.Close()

	bus.logger.Info("kafka event bus initialized", "brokers", parsed, "group_id", config.GroupID)
	return bus, nil
}

// Emit publishes the event to its topic.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	env, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	msg := kafka.Message{
		Topic: nameFor(b.config.TopicPrefix, events.EventType(event.Type())),
		Key:   []byte(messageKey(event)),
		Value: env,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Register starts one consumer group reader per event type.
func (b *KafkaEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()
	if _, exists := b.readers[eventType]; exists {
		b.logger.Warn("handler already registered, ignoring", "event_type", eventType)
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID,
		Topic:       nameFor(b.config.TopicPrefix, eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      b.dialer,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(eventType, reader, handler)
	}()
}

func (b *KafkaEventBus) consume(eventType events.EventType, reader *kafka.Reader, handler eventbus.HandlerFunc) {
	for {
		msg, err := reader.FetchMessage(b.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || b.ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "event_type", eventType, "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if !b.deliver(eventType, msg, handler) {
			if err := b.publishToDLQ(eventType, msg); err != nil {
				b.logger.Error("kafka dlq publish failed; will redeliver", "error", err, "offset", msg.Offset)
				continue
			}
		}
		if err := reader.CommitMessages(b.ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "offset", msg.Offset)
		}
	}
}

// deliver reports whether the message was handled successfully.
func (b *KafkaEventBus) deliver(eventType events.EventType, msg kafka.Message, handler eventbus.HandlerFunc) (ok bool) {
	evt, err := decodeEnvelope(msg.Value)
	if err != nil {
		b.logger.Error("failed to decode event", "event_type", eventType, "error", err, "offset", msg.Offset)
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", "panic", r, "event_type", eventType)
			ok = false
		}
	}()
	if err := handler(b.ctx, evt); err != nil {
		b.logger.Error("handler error", "event_type", eventType, "error", err)
		return false
	}
	return true
}

func (b *KafkaEventBus) publishToDLQ(eventType events.EventType, msg kafka.Message) error {
	dlq := nameFor(b.config.TopicPrefix, eventType) + ".dlq"
	if err := b.writer.WriteMessages(b.ctx, kafka.Message{Topic: dlq, Key: msg.Key, Value: msg.Value, Time: time.Now()}); err != nil {
		return err
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", dlq)
	return nil
}

// Close stops consumers and flushes the writer.
func (b *KafkaEventBus) Close() error {
	if b == nil {
		return nil
	}
	b.cancel()
	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}

func saslMechanism(config *KafkaEventBusConfig) (sasl.Mechanism, error) {
	username := strings.TrimSpace(config.SASLUsername)
	password := strings.TrimSpace(config.SASLPassword)
	if username == "" && password == "" {
		return nil, nil
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("kafka event bus: sasl username and password are required")
	}
	return plain.Mechanism{Username: username, Password: password}, nil
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// messageKey partitions movement events by account; other events by type.
func messageKey(event events.Event) string {
	if mr, ok := event.(*events.MovementRecorded); ok {
		return mr.AccountNumber
	}
	return event.Type()
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
