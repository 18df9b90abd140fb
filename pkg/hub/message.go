// Package hub fans JSON messages out to websocket clients using the
// channel-based register/unregister/broadcast pattern.
package hub

import "encoding/json"

// Message is one encoded payload queued for every client.
type Message struct {
	Data []byte
}

// NewJSONMessage encodes v into a Message.
func NewJSONMessage(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
