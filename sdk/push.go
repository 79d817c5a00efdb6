package sdk

import "context"

// RegisterPushToken registers a device token for the caller
func (c *Client) RegisterPushToken(ctx context.Context, token, platform string) error {
	return c.post(ctx, "/push/token", &PushTokenRequest{Token: token, Platform: platform}, nil)
}

// UnregisterPushToken removes a device token
func (c *Client) UnregisterPushToken(ctx context.Context, token string) error {
	return c.delete(ctx, "/push/token", &PushTokenRequest{Token: token}, nil)
}
