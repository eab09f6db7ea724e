// Package protocol defines the wire messages exchanged between golf clients
// and the relay. Every message travels inside an Envelope whose Type selects
// exactly one payload struct; payloads are validated when decoded so handlers
// never see malformed input.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownType    = errors.New("protocol: unknown message type")
	ErrInvalidPayload = errors.New("protocol: invalid payload")
	ErrEmptyFrame     = errors.New("protocol: empty frame")
)

// Envelope is the outer frame of every message. From is the sender slot as
// stamped by the relay or peer listener; clients never set it themselves.
type Envelope struct {
	Type string          `json:"type"`
	From int             `json:"from,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is implemented by every payload struct.
type Message interface {
	MessageType() string
}

type validator interface {
	Validate() error
}

// Encode wraps msg into an envelope.
func Encode(msg Message) (Envelope, error) {
	if msg == nil {
		return Envelope{}, fmt.Errorf("%w: nil message", ErrInvalidPayload)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return Envelope{Type: msg.MessageType(), Data: data}, nil
}

// MustEncode is Encode for payloads that cannot fail to marshal.
func MustEncode(msg Message) Envelope {
	env, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return env
}

// Marshal encodes msg straight to frame bytes.
func Marshal(msg Message) ([]byte, error) {
	env, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal parses frame bytes into an envelope without decoding the payload.
func Unmarshal(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyFrame
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrInvalidPayload)
	}
	return env, nil
}

// Decode turns an envelope into its typed payload and validates it.
func Decode(env Envelope) (Message, error) {
	decode, ok := registry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	msg, err := decode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Type, err)
	}
	return msg, nil
}

type decoder func(data json.RawMessage) (Message, error)

func decoderFor[T Message]() decoder {
	return func(data json.RawMessage) (Message, error) {
		var m T
		if len(data) > 0 && string(data) != "null" {
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, err
			}
		}
		if v, ok := any(m).(validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
}

// DecodeAs decodes env and asserts the payload type.
func DecodeAs[T Message](env Envelope) (T, error) {
	var zero T
	msg, err := Decode(env)
	if err != nil {
		return zero, err
	}
	out, ok := msg.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrInvalidPayload, env.Type, msg)
	}
	return out, nil
}
