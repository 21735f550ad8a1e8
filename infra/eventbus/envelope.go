package eventbus

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirasaad/vatm/pkg/domain/events"
)

// envelope is the wire shape shared by the Redis and Kafka buses.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	env, err := json.Marshal(envelope{Type: event.Type(), Payload: data})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope %s: %w", event.Type(), err)
	}
	return env, nil
}

// decodeEnvelope turns raw bytes back into a typed event using events.EventTypes.
func decodeEnvelope(raw []byte) (events.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := events.EventTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, fmt.Errorf("unmarshal payload %s: %w", env.Type, err)
	}
	return evt, nil
}

// nameFor derives broker object names: "Movement.Recorded" with prefix "vatm.events"
// becomes "vatm.events.movement.recorded".
func nameFor(prefix string, eventType events.EventType) string {
	name := strings.ToLower(eventType.String())
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
