package domain

// DefaultRoom is used when an envelope names no room.
const DefaultRoom = "default"

// TargetAdmin routes a candidate to the room's broadcaster.
const TargetAdmin = "admin"

// Signaling message types from client.
const (
	MsgTypeAdminJoin    = "admin-join"
	MsgTypeAdminReady   = "admin-ready"
	MsgTypeAdminStopped = "admin-stopped"
	MsgTypeViewerJoin   = "viewer-join"
	MsgTypeViewerLeave  = "viewer-leave"
	MsgTypeOffer        = "offer"
	MsgTypeAnswer       = "answer"
	MsgTypeCandidate    = "candidate"
	MsgTypeICECandidate = "ice-candidate"
)

// Signaling message types to client.
const (
	MsgTypeAdminJoined   = "admin-joined"
	MsgTypeAdminReplaced = "admin-replaced"
	MsgTypeViewerJoined  = "viewer-joined"
	MsgTypeError         = "error"
)

// Envelope holds the routing fields of a signaling message. Payloads
// (offer, answer, candidate) are relayed from the raw bytes untouched.
type Envelope struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	ViewerID string `json:"viewerId,omitempty"`
	Target   string `json:"target,omitempty"`
}

// RoomOrDefault returns the envelope's room, or DefaultRoom when empty.
func (e *Envelope) RoomOrDefault() string {
	if e.Room == "" {
		return DefaultRoom
	}
	return e.Room
}

// Notice is a relay-generated signaling message.
type Notice struct {
	Type     string   `json:"type"`
	Room     string   `json:"room"`
	ViewerID string   `json:"viewerId,omitempty"`
	Viewers  []string `json:"viewers,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// ErrorMessage is sent when a request is rejected.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error frame.
func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: MsgTypeError, Code: code, Message: message}
}
