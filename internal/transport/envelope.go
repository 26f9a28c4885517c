package transport

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON document carried by every broker message.
//
// Requests carry ID (the correlation id) and ReplyTo. Replies echo ID and carry
// either Data or Err. Emitted events carry neither ID nor ReplyTo; MessageID
// identifies the event for duplicate suppression on the consumer side.
type Envelope struct {
	Pattern   string          `json:"pattern,omitempty"`
	ID        string          `json:"id,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	ReplyTo   string          `json:"replyTo,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Err       *Error          `json:"err,omitempty"`
}

// IsRequest reports whether the envelope expects a reply.
func (e Envelope) IsRequest() bool {
	return e.ID != "" && e.ReplyTo != ""
}

// IsEvent reports whether the envelope is a fire-and-forget event.
func (e Envelope) IsEvent() bool {
	return e.ID == "" && e.Pattern != ""
}

// Decode unmarshals the envelope data into v. A missing body leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %q payload: %w", e.Pattern, err)
	}
	return nil
}

func marshalEnvelope(env Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope for pattern %q: %w", env.Pattern, err)
	}
	return body, nil
}

func unmarshalEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}
