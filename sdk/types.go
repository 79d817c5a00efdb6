package sdk

import "encoding/json"

// Response represents the standard API response
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Me describes the authenticated caller
type Me struct {
	Id          string `json:"id"`
	Role        string `json:"role"`
	ProfileId   string `json:"profile_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// Message is one chat message
type Message struct {
	Id             string `json:"id"`
	ConversationId string `json:"conversation_id"`
	Seq            int64  `json:"seq"`
	SenderId       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	Text           string `json:"text"`
	Read           bool   `json:"read"`
	ReadAt         *int64 `json:"read_at"`
	CreatedAt      int64  `json:"created_at"`
}

// Conversation is the full conversation record
type Conversation struct {
	Id                      string     `json:"id"`
	HomelessId              string     `json:"homeless_id"`
	OrganizationId          *string    `json:"organization_id,omitempty"`
	MerchantId              *string    `json:"merchant_id,omitempty"`
	LastMessageId           string     `json:"last_message_id,omitempty"`
	LastMessageText         string     `json:"last_message_text,omitempty"`
	LastMessageAt           int64      `json:"last_message_at,omitempty"`
	UnreadCountOrganization int64      `json:"unread_count_organization"`
	UnreadCountMerchant     int64      `json:"unread_count_merchant"`
	UnreadCountHomeless     int64      `json:"unread_count_homeless"`
	IsDeleted               bool       `json:"is_deleted"`
	CreatedAt               int64      `json:"created_at"`
	UpdatedAt               int64      `json:"updated_at"`
	Messages                []*Message `json:"messages,omitempty"`
}

// UnreadCounts is the snapshot of all three counters
type UnreadCounts struct {
	Organization int64 `json:"unread_count_organization"`
	Merchant     int64 `json:"unread_count_merchant"`
	Homeless     int64 `json:"unread_count_homeless"`
}

// Party names one side of a conversation in list views
type Party struct {
	Id   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

// ConversationSummary is one row of the conversation list
type ConversationSummary struct {
	Id              string       `json:"id"`
	Counterpart     *Party       `json:"counterpart,omitempty"`
	Homeless        *Party       `json:"homeless,omitempty"`
	LastMessageId   string       `json:"last_message_id,omitempty"`
	LastMessageText string       `json:"last_message_text,omitempty"`
	LastMessageAt   int64        `json:"last_message_at,omitempty"`
	UnreadCount     int64        `json:"unread_count"`
	UnreadCounts    UnreadCounts `json:"unread_counts"`
	UpdatedAt       int64        `json:"updated_at"`
}

// ReadReceipt is returned by mark-as-read and pushed to the conversation
type ReadReceipt struct {
	ConversationId          string `json:"conversation_id"`
	ReaderId                string `json:"reader_id"`
	ReaderRole              string `json:"reader_role"`
	ReadAt                  int64  `json:"read_at"`
	UnreadCountOrganization int64  `json:"unread_count_organization"`
	UnreadCountMerchant     int64  `json:"unread_count_merchant"`
	UnreadCountHomeless     int64  `json:"unread_count_homeless"`
}

// NewMessageEvent is the payload of a 2001 push
type NewMessageEvent struct {
	ConversationId string       `json:"conversation_id"`
	Message        *Message     `json:"message"`
	UnreadCounts   UnreadCounts `json:"unread_counts"`
}

// TypingEvent is the payload of a 2003 push
type TypingEvent struct {
	ConversationId string `json:"conversation_id"`
	SenderId       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	DisplayName    string `json:"display_name"`
	IsTyping       bool   `json:"is_typing"`
	Timestamp      int64  `json:"timestamp"`
}

// ===== Request types =====

// GetOrCreateRequest names the two parties of a conversation
type GetOrCreateRequest struct {
	HomelessId     string `json:"homeless_id"`
	CounterpartyId string `json:"counterparty_id"`
}

// SendMessageRequest is the body of a send
type SendMessageRequest struct {
	Text string `json:"text"`
}

// PushTokenRequest registers or removes one device token
type PushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}
