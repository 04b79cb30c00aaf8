package client

import "context"

// WhoAmI returns the identity the session is logged in as.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	if err := c.requireCurrent("whoami"); err != nil {
		return nil, err
	}
	var u User
	if err := c.Get(ctx, APIPath("user/whoami"), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
