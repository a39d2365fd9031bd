package entity

import (
	"encoding/json"
	"math"
)

// Message is one immutable chat line. Field names follow the realtime store
// keyspace messages/{conversationId}/messagesList/{messageId}.
type Message struct {
	ID          string `json:"id" firestore:"id"`
	Message     string `json:"message" firestore:"message"`
	MessageDate int64  `json:"messageDate" firestore:"messageDate"`
	SenderID    string `json:"senderId" firestore:"senderId"`
}

// RawRecord is an undecoded child delivered by a backend, keyed by its
// store key.
type RawRecord struct {
	Key    string
	Fields map[string]interface{}
}

// Record returns the field map written to the backing store.
func (m Message) Record() map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"message":     m.Message,
		"messageDate": m.MessageDate,
		"senderId":    m.SenderID,
	}
}

// ParseMessage decodes a raw record. It reports false when a required field
// is missing or has the wrong type. A missing id falls back to the store key.
func ParseMessage(raw RawRecord) (Message, bool) {
	if raw.Fields == nil {
		return Message{}, false
	}
	text, ok := raw.Fields["message"].(string)
	if !ok {
		return Message{}, false
	}
	sender, ok := raw.Fields["senderId"].(string)
	if !ok || sender == "" {
		return Message{}, false
	}
	date, ok := AsInt64(raw.Fields["messageDate"])
	if !ok {
		return Message{}, false
	}

	id, _ := raw.Fields["id"].(string)
	if id == "" {
		id = raw.Key
	}
	if id == "" {
		return Message{}, false
	}

	return Message{
		ID:          id,
		Message:     text,
		MessageDate: date,
		SenderID:    sender,
	}, true
}

// AsInt64 accepts the numeric shapes the different backends decode to.
func AsInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	}
	return 0, false
}
