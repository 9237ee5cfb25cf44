package model

// WSMessageType identifies a websocket message
type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
)

// WSRunMessage is pushed to dashboard subscribers of a run
type WSRunMessage struct {
	Type  WSMessageType `json:"type"`
	RunID string        `json:"run_id"`
	Run   *RunSnapshot  `json:"run,omitempty"`
	Error string        `json:"error,omitempty"`
}
