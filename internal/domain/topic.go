package domain

import "encoding/json"

// Topics published on the bus.
const (
	TopicStreamStatus = "stream-status"
	TopicViewerCount  = "viewer-count"
	TopicChat         = "public"
)

// IsKnownTopic reports whether clients may subscribe to topic.
func IsKnownTopic(topic string) bool {
	switch topic {
	case TopicStreamStatus, TopicViewerCount, TopicChat:
		return true
	}
	return false
}

// Event socket frame types.
const (
	FrameSubscribe    = "subscribe"
	FrameUnsubscribe  = "unsubscribe"
	FrameChat         = "chat"
	FrameViewerJoin   = "viewer-join"
	FrameViewerLeave  = "viewer-leave"
	FramePing         = "ping"
	FrameEvent        = "event"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FramePong         = "pong"
)

// EventFrame carries one publish to a subscriber.
type EventFrame struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

// ClientFrame is any frame sent by an event-socket client.
type ClientFrame struct {
	Type        string `json:"type"`
	Topic       string `json:"topic,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Content     string `json:"content,omitempty"`
}

// AckFrame acknowledges a client frame.
type AckFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}
