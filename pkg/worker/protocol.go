package worker

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies a protocol message.
type MessageType string

// Request message types, sent from the pool to a worker.
const (
	MessageCalculate      MessageType = "calculate"
	MessageBatchCalculate MessageType = "batch_calculate"
	MessageClearCache     MessageType = "clear_cache"
	MessageGetStats       MessageType = "get_stats"
)

// Response message types, sent from a worker to the pool.
const (
	MessageResult      MessageType = "result"
	MessageBatchResult MessageType = "batch_result"
	MessageError       MessageType = "error"
	MessageStats       MessageType = "stats"
)

// Message is the envelope exchanged between the pool and its workers.
// A response carries the id of the request it answers.
type Message struct {
	Type  MessageType     `json:"type"`
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// EncodeMessage builds the wire form of a message with data as payload.
func EncodeMessage(typ MessageType, id string, data any) ([]byte, error) {
	msg := Message{Type: typ, ID: id}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", typ, err)
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// encodeError builds an error response. It cannot fail.
func encodeError(id string, cause error) []byte {
	raw, err := json.Marshal(Message{Type: MessageError, ID: id, Error: cause.Error()})
	if err != nil {
		return []byte(`{"type":"error","id":"","error":"unencodable error"}`)
	}
	return raw
}

// DecodeMessage parses the wire form of a message.
func DecodeMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return &msg, nil
}

// DecodeData unmarshals the message payload into v.
func (m *Message) DecodeData(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message %q has no data", m.Type, m.ID)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}
