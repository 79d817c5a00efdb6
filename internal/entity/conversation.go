package entity

import (
	"fmt"

	"github.com/mbeoliero/haven/pkg/constant"
)

// Conversation is the dialogue between one homeless profile and exactly one
// organization or merchant. Messages are stored separately in chat_messages.
type Conversation struct {
	Id                      string  `json:"id" gorm:"column:id;primaryKey;size:36"`
	HomelessId              string  `json:"homeless_id" gorm:"column:homeless_id;size:36;index"`
	OrganizationId          *string `json:"organization_id,omitempty" gorm:"column:organization_id;size:36;index"`
	MerchantId              *string `json:"merchant_id,omitempty" gorm:"column:merchant_id;size:36;index"`
	PairKey                 string  `json:"-" gorm:"column:pair_key;size:128;uniqueIndex"`
	MessageSeq              int64   `json:"-" gorm:"column:message_seq"`
	LastMessageId           string  `json:"last_message_id,omitempty" gorm:"column:last_message_id;size:32"`
	LastMessageText         string  `json:"last_message_text,omitempty" gorm:"column:last_message_text;type:text"`
	LastMessageAt           int64   `json:"last_message_at,omitempty" gorm:"column:last_message_at"`
	UnreadCountOrganization int64   `json:"unread_count_organization" gorm:"column:unread_count_organization"`
	UnreadCountMerchant     int64   `json:"unread_count_merchant" gorm:"column:unread_count_merchant"`
	UnreadCountHomeless     int64   `json:"unread_count_homeless" gorm:"column:unread_count_homeless"`
	IsDeleted               bool    `json:"is_deleted" gorm:"column:is_deleted;index"`
	DeletedAt               *int64  `json:"deleted_at,omitempty" gorm:"column:deleted_at"`
	CreatedAt               int64   `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt               int64   `json:"updated_at" gorm:"column:updated_at;index;autoUpdateTime:milli"`

	Messages []*ChatMessage `json:"messages,omitempty" gorm:"-"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// CounterpartyRef identifies the organization or merchant side of a conversation
type CounterpartyRef struct {
	Kind string // constant.CounterpartyOrganization or constant.CounterpartyMerchant
	Id   string
}

// PairKey returns the uniqueness key of a live conversation between ref and homelessId
func (r CounterpartyRef) PairKey(homelessId string) string {
	prefix := "org"
	if r.Kind == constant.CounterpartyMerchant {
		prefix = "mer"
	}
	return fmt.Sprintf("%s:%s|%s", prefix, r.Id, homelessId)
}

// NewConversation builds an empty conversation shell
func NewConversation(id, homelessId string, ref CounterpartyRef, now int64) *Conversation {
	conv := &Conversation{
		Id:         id,
		HomelessId: homelessId,
		PairKey:    ref.PairKey(homelessId),
		CreatedAt:  now,
		UpdatedAt:  now,
		Messages:   []*ChatMessage{},
	}
	counterpartyId := ref.Id
	if ref.Kind == constant.CounterpartyMerchant {
		conv.MerchantId = &counterpartyId
	} else {
		conv.OrganizationId = &counterpartyId
	}
	return conv
}

// HasOrganization reports whether the counterparty is an organization
func (c *Conversation) HasOrganization() bool {
	return c.OrganizationId != nil && *c.OrganizationId != ""
}

// HasMerchant reports whether the counterparty is a merchant
func (c *Conversation) HasMerchant() bool {
	return c.MerchantId != nil && *c.MerchantId != ""
}

// Counterparty returns the organization or merchant side
func (c *Conversation) Counterparty() CounterpartyRef {
	if c.HasOrganization() {
		return CounterpartyRef{Kind: constant.CounterpartyOrganization, Id: *c.OrganizationId}
	}
	if c.HasMerchant() {
		return CounterpartyRef{Kind: constant.CounterpartyMerchant, Id: *c.MerchantId}
	}
	return CounterpartyRef{}
}

// HasExactlyOneCounterparty checks the organization/merchant exclusivity invariant
func (c *Conversation) HasExactlyOneCounterparty() bool {
	return c.HasOrganization() != c.HasMerchant()
}

// Counter returns the value of an unread counter
func (c *Conversation) Counter(counter constant.UnreadCounter) int64 {
	switch counter {
	case constant.CounterOrganization:
		return c.UnreadCountOrganization
	case constant.CounterMerchant:
		return c.UnreadCountMerchant
	case constant.CounterHomeless:
		return c.UnreadCountHomeless
	}
	return 0
}

// IncrCounter adds one to counter; CounterNone is a no-op
func (c *Conversation) IncrCounter(counter constant.UnreadCounter) {
	switch counter {
	case constant.CounterOrganization:
		c.UnreadCountOrganization++
	case constant.CounterMerchant:
		c.UnreadCountMerchant++
	case constant.CounterHomeless:
		c.UnreadCountHomeless++
	}
}

// ResetCounter sets counter back to zero; CounterNone is a no-op
func (c *Conversation) ResetCounter(counter constant.UnreadCounter) {
	switch counter {
	case constant.CounterOrganization:
		c.UnreadCountOrganization = 0
	case constant.CounterMerchant:
		c.UnreadCountMerchant = 0
	case constant.CounterHomeless:
		c.UnreadCountHomeless = 0
	}
}

// ApplyMessage records msg as the latest message of the conversation
func (c *Conversation) ApplyMessage(msg *ChatMessage, bump constant.UnreadCounter) {
	c.MessageSeq = msg.Seq
	c.LastMessageId = msg.Id
	c.LastMessageText = msg.Text
	c.LastMessageAt = msg.CreatedAt
	c.UpdatedAt = msg.CreatedAt
	c.IncrCounter(bump)
}

// UnreadCounts is the snapshot of all three counters
type UnreadCounts struct {
	Organization int64 `json:"unread_count_organization"`
	Merchant     int64 `json:"unread_count_merchant"`
	Homeless     int64 `json:"unread_count_homeless"`
}

// Counts returns the current counter snapshot
func (c *Conversation) Counts() UnreadCounts {
	return UnreadCounts{
		Organization: c.UnreadCountOrganization,
		Merchant:     c.UnreadCountMerchant,
		Homeless:     c.UnreadCountHomeless,
	}
}

// PartySummary describes one side of a conversation for list views
type PartySummary struct {
	Id   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

// ConversationSummary is one row of a principal's conversation list
type ConversationSummary struct {
	Id              string        `json:"id"`
	Counterpart     *PartySummary `json:"counterpart,omitempty"`
	Homeless        *PartySummary `json:"homeless,omitempty"`
	LastMessageId   string        `json:"last_message_id,omitempty"`
	LastMessageText string        `json:"last_message_text,omitempty"`
	LastMessageAt   int64         `json:"last_message_at,omitempty"`
	UnreadCount     int64         `json:"unread_count"`
	UnreadCounts    UnreadCounts  `json:"unread_counts"`
	UpdatedAt       int64         `json:"updated_at"`
}
