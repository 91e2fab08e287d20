package api

import (
	"context"
)

// Login exchanges credentials for tokens and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.doPublicPost(ctx, "/auth/login/", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns tokens for it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doPublicPost(ctx, "/auth/register/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout blacklists the refresh token on the server.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.doPublicPost(ctx, "/auth/logout/", map[string]string{"refresh": refresh}, nil)
}

// ForgotPassword asks the backend to mail reset instructions to email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.doPublicPost(ctx, "/auth/forgot-password/", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using the token from the reset mail.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.doPublicPost(ctx, "/auth/reset-password/", body, nil)
}

// RefreshToken trades a refresh token for a new access token.
// Refresh is set only when the backend rotates refresh tokens.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	var resp TokenPair
	if err := c.doPublicPost(ctx, "/api/token/refresh/", map[string]string{"refresh": refresh}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doGet(ctx, "/auth/users/me/", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateMe patches the current user's profile.
func (c *Client) UpdateMe(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var u User
	if err := c.doPatch(ctx, "/auth/users/update_me/", upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
