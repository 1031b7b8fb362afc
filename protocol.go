// protocol.go
// The wire contract between the relay and the chat surface. Every frame is a JSON
// envelope carrying an event name and its payload, in both directions.

package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Event names, shared by inbound commands and outbound events.
const (
	EventJoin             = "join"
	EventUserList         = "user list"
	EventChatMessage      = "chat message"
	EventTyping           = "typing"
	EventStopTyping       = "stop typing"
	EventMessageDelivered = "message delivered"
	EventMessageRead      = "message read"
)

// Envelope is the frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChatMessage keeps the field names the chat surface already uses:
// user is the sender, text the body and to the recipient (null means everyone).
// A decoded message remembers every field it arrived with and is forwarded in
// that shape; only user and deliveredAt are rewritten.
type ChatMessage struct {
	ID          string          `json:"id" validate:"required"`
	Sender      string          `json:"user"`
	Body        string          `json:"text"`
	Recipient   *string         `json:"to"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`

	raw map[string]json.RawMessage
}

// chatMessageFields has ChatMessage's fields without its JSON methods.
type chatMessageFields ChatMessage

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fields chatMessageFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = ChatMessage(fields)
	m.raw = raw
	return nil
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if m.raw == nil {
		return json.Marshal(chatMessageFields(m))
	}
	out := maps.Clone(m.raw)
	sender, err := json.Marshal(m.Sender)
	if err != nil {
		return nil, err
	}
	out["user"] = sender
	if m.DeliveredAt != nil {
		at, err := json.Marshal(m.DeliveredAt)
		if err != nil {
			return nil, err
		}
		out["deliveredAt"] = at
	}
	return json.Marshal(out)
}

// IsBroadcast reports whether the message carries the broadcast marker.
func (m ChatMessage) IsBroadcast() bool {
	return isBroadcast(m.Recipient)
}

type TypingSignal struct {
	From string  `json:"from" validate:"required"`
	To   *string `json:"to"`
}

func (s TypingSignal) IsBroadcast() bool {
	return isBroadcast(s.To)
}

// ReadReceipt tells the original sender (To) that From has seen message ID.
type ReadReceipt struct {
	ID   string `json:"id" validate:"required"`
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// Ack is the payload of both delivery and read acknowledgements.
type Ack struct {
	ID string `json:"id"`
}

func isBroadcast(to *string) bool {
	return to == nil || strings.TrimSpace(*to) == ""
}

// encode builds a ready-to-send frame. Fan-out encodes once and shares the bytes.
func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// decode unmarshals an envelope payload into T.
func decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, fmt.Errorf("%w: %q has no data", ErrMalformedPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("%w: %q: %v", ErrMalformedPayload, env.Event, err)
	}
	return v, nil
}
