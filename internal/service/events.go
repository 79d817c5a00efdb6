package service

import "github.com/mbeoliero/haven/internal/entity"

// EventType identifies a real-time event pushed to clients
type EventType int

const (
	EventNewMessage EventType = iota + 1
	EventTyping
	EventReadReceipt
)

// Event is a broadcast unit handed to the Broadcaster
type Event struct {
	Type    EventType
	Payload interface{}
}

// MessageEvent carries a newly persisted message. Clients de-duplicate by message id
// since the same event can arrive on both the conversation and the personal channel.
type MessageEvent struct {
	ConversationId string              `json:"conversation_id"`
	Message        *entity.ChatMessage `json:"message"`
	UnreadCounts   entity.UnreadCounts `json:"unread_counts"`
}

// TypingEvent is an ephemeral typing indicator, never persisted
type TypingEvent struct {
	ConversationId string `json:"conversation_id"`
	SenderId       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	DisplayName    string `json:"display_name"`
	IsTyping       bool   `json:"is_typing"`
	Timestamp      int64  `json:"timestamp"`
}

// ReadReceiptEvent is broadcast after a successful mark-as-read
type ReadReceiptEvent struct {
	ConversationId          string `json:"conversation_id"`
	ReaderId                string `json:"reader_id"`
	ReaderRole              string `json:"reader_role"`
	ReadAt                  int64  `json:"read_at"`
	UnreadCountOrganization int64  `json:"unread_count_organization"`
	UnreadCountMerchant     int64  `json:"unread_count_merchant"`
	UnreadCountHomeless     int64  `json:"unread_count_homeless"`
}

// NewMessageJob is the notification work item created after a successful send
type NewMessageJob struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
	SenderId       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	SenderName     string `json:"sender_name"`
	Text           string `json:"text"`
}

// PushNotification is one device-level notification
type PushNotification struct {
	Token string            `json:"to"`
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}
