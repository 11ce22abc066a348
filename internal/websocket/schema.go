package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectAnswer Action = "select_answer"
	ActionNavigate     Action = "navigate"
	ActionToggleFlag   Action = "toggle_flag"
	ActionPause        Action = "pause"
	ActionResume       Action = "resume"
	ActionSubmit       Action = "submit"
	ActionSync         Action = "sync"
	ActionPing         Action = "ping"
)

// Request is one client action. Only the fields of that action are read.
type Request struct {
	Action   Action `json:"action"`
	OptionID string `json:"option_id,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Confirm  bool   `json:"confirm,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventSession relays an engine event: tick, status, answer and so on.
	EventSession Event = "session"
	// EventState answers an action with the full session view.
	EventState  Event = "state"
	EventResult Event = "result"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// Message is every server frame.
type Message struct {
	Event  Event  `json:"event"`
	Action Action `json:"action,omitempty"`
	Data   any    `json:"data,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}
