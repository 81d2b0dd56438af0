package websocket

import "github.com/ctkuo2438/NUboard/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only client message shape; the stream is read-only.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady    Event = "ready"
	EventActivity Event = "activity"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// ReadyResponse is sent once the subscription is live.
type ReadyResponse struct {
	Event Event `json:"event"`
}

// ActivityResponse carries one committed authorization change.
type ActivityResponse struct {
	Event    Event               `json:"event"`
	Activity model.ActivityEvent `json:"activity"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
