package sdk

import (
	"context"
	"net/url"
)

// GetOrCreateConversation returns the conversation between a homeless profile
// and an organization or merchant, creating it on first contact
func (c *Client) GetOrCreateConversation(ctx context.Context, homelessId, counterpartyId string) (*Conversation, error) {
	req := &GetOrCreateRequest{
		HomelessId:     homelessId,
		CounterpartyId: counterpartyId,
	}
	var result Conversation
	if err := c.post(ctx, "/chat/conversations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrCreateConversationByPath is the path-parameter form of GetOrCreateConversation
func (c *Client) GetOrCreateConversationByPath(ctx context.Context, homelessId, counterpartyId string) (*Conversation, error) {
	var result Conversation
	path := "/chat/" + url.PathEscape(homelessId) + "/" + url.PathEscape(counterpartyId)
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConversationList lists the caller's conversations, most recently updated first
func (c *Client) GetConversationList(ctx context.Context) ([]*ConversationSummary, error) {
	var result []*ConversationSummary
	if err := c.get(ctx, "/chat/conversations", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetConversation gets a specific conversation
func (c *Client) GetConversation(ctx context.Context, conversationId string) (*Conversation, error) {
	var result Conversation
	if err := c.get(ctx, conversationPath(conversationId), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteConversation soft-deletes a conversation
func (c *Client) DeleteConversation(ctx context.Context, conversationId string) error {
	return c.delete(ctx, conversationPath(conversationId), nil, nil)
}

func conversationPath(conversationId string) string {
	return "/chat/conversations/" + url.PathEscape(conversationId)
}
