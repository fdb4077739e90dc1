package model

// Job event types pushed on /ws/jobs/:jobId
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
	EventPing     = "ping"
	EventPong     = "pong"
)

// JobEvent is the single envelope for every websocket frame. Exactly one of
// Progress, Result or Error is set, matching Type.
type JobEvent struct {
	Type     string            `json:"type"`
	JobID    string            `json:"jobId,omitempty"`
	Progress *Progress         `json:"progress,omitempty"`
	Result   any               `json:"result,omitempty"`
	Error    *EventErrorDetail `json:"error,omitempty"`
}

// Terminal reports whether no further events follow for the job.
func (e JobEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// EventErrorDetail is the payload of an error event.
type EventErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
