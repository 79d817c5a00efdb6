package sdk

import "context"

// Me returns the caller resolved from the current token
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var result Me
	if err := c.get(ctx, "/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout revokes the current token on the server and forgets it locally
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}
