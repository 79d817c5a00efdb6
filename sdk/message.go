package sdk

import "context"

// SendMessage sends a text message to a conversation
func (c *Client) SendMessage(ctx context.Context, conversationId, text string) (*Message, error) {
	var result Message
	if err := c.post(ctx, conversationPath(conversationId)+"/messages", &SendMessageRequest{Text: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages returns the full history of a conversation in send order
func (c *Client) GetMessages(ctx context.Context, conversationId string) ([]*Message, error) {
	var result []*Message
	if err := c.get(ctx, conversationPath(conversationId)+"/messages", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRead marks the other side's messages as read and resets the caller's counter
func (c *Client) MarkRead(ctx context.Context, conversationId string) (*ReadReceipt, error) {
	var result ReadReceipt
	if err := c.post(ctx, conversationPath(conversationId)+"/read", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
