package entity

// ChatMessage is one append-only entry of a conversation
type ChatMessage struct {
	Id             string `json:"id" gorm:"column:id;primaryKey;size:32"`
	ConversationId string `json:"conversation_id" gorm:"column:conversation_id;size:36;index:idx_conv_seq,priority:1"`
	Seq            int64  `json:"seq" gorm:"column:seq;index:idx_conv_seq,priority:2"`
	SenderId       string `json:"sender_id" gorm:"column:sender_id;size:64"`
	SenderRole     string `json:"sender_role" gorm:"column:sender_role;size:16"`
	Text           string `json:"text" gorm:"column:text;type:text"`
	Read           bool   `json:"read" gorm:"column:is_read"`
	ReadAt         *int64 `json:"read_at" gorm:"column:read_at"`
	CreatedAt      int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
}

// TableName returns the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// IsUnreadFor reports whether readerId still has to acknowledge the message
func (m *ChatMessage) IsUnreadFor(readerId string) bool {
	return !m.Read && m.SenderId != readerId
}

// MarkRead flags the message as read at the given time
func (m *ChatMessage) MarkRead(at int64) {
	m.Read = true
	readAt := at
	m.ReadAt = &readAt
}
