package domain

import "time"

// Control actions.
const (
	ActionStart  = "START"
	ActionStop   = "STOP"
	ActionPause  = "PAUSE"
	ActionResume = "RESUME"
)

// StreamStatus is an immutable snapshot of the live session.
type StreamStatus struct {
	IsLive            bool       `json:"isLive"`
	StreamTitle       *string    `json:"streamTitle"`
	StreamDescription *string    `json:"streamDescription"`
	StartTime         *time.Time `json:"startTime"`
	ViewerCount       int        `json:"viewerCount"`
	StreamURL         *string    `json:"streamUrl"`
}

// ControlRequest asks the live session to change state.
type ControlRequest struct {
	Action            string `json:"action"`
	StreamTitle       string `json:"streamTitle,omitempty"`
	StreamDescription string `json:"streamDescription,omitempty"`

	// Actor is the caller's user id, when known.
	Actor string `json:"-"`
}

// ViewerCount is published on the viewer-count topic.
type ViewerCount struct {
	ViewerCount int `json:"viewerCount"`
}
