package stream

import (
	"encoding/json"

	"github.com/runtimeeditor/history/internal/history"
)

// Message type constants of the editor stream protocol.
const (
	TypeHello        = "hello"
	TypeHistoryState = "history_state"
	TypeHistoryOp    = "history_op"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload identifies the editor session to the server.
type HelloPayload struct {
	Session  string `json:"session"`
	Capacity int    `json:"capacity"`
}

// OpPayload describes one history operation.
type OpPayload struct {
	Op           string   `json:"op"`
	CommandID    string   `json:"commandId,omitempty"`
	Kind         string   `json:"kind,omitempty"`
	Affected     []string `json:"affected,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	StaleSkipped int      `json:"staleSkipped,omitempty"`
	Cleared      bool     `json:"cleared,omitempty"`
}

// NewOpPayload converts a history result into its wire form.
func NewOpPayload(op string, res history.Result) OpPayload {
	p := OpPayload{
		Op:           op,
		CommandID:    res.CommandID,
		StaleSkipped: res.StaleSkipped,
		Cleared:      res.Cleared,
	}
	if !res.Empty() {
		p.Kind = res.Kind.String()
	}
	for _, h := range res.Affected {
		p.Affected = append(p.Affected, string(h))
	}
	for _, h := range res.Skipped {
		p.Skipped = append(p.Skipped, string(h))
	}
	for _, w := range res.Warnings {
		p.Warnings = append(p.Warnings, w.Error())
	}
	return p
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
