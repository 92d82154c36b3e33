package domain

import "time"

// MessageKind classifies a chat message.
type MessageKind string

const (
	KindChat   MessageKind = "CHAT"
	KindSystem MessageKind = "SYSTEM"
	KindError  MessageKind = "ERROR"
)

// SystemName is the display name of relay-generated chat messages.
const SystemName = "System"

// ChatMessage is immutable once built.
type ChatMessage struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
	Type        MessageKind `json:"type"`
}

// ChatInput is an inbound chat submission.
type ChatInput struct {
	DisplayName string `json:"displayName"`
	Content     string `json:"content"`
}
