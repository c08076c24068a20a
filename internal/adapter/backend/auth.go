package backend

import (
	"context"
	"net/http"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

// AuthResult is the answer to login and register.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (c *Client) Login(ctx context.Context, h CredentialHolder, username, password string) (*AuthResult, error) {
	return call[AuthResult](ctx, c, h, http.MethodPost, "/auth/login", nil, loginRequest{Username: username, Password: password})
}

func (c *Client) Register(ctx context.Context, h CredentialHolder, reg domain.Registration) (*AuthResult, error) {
	return call[AuthResult](ctx, c, h, http.MethodPost, "/auth/register", nil, reg)
}

func (c *Client) Me(ctx context.Context, h CredentialHolder) (*domain.User, error) {
	return call[domain.User](ctx, c, h, http.MethodGet, "/auth/me", nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, h CredentialHolder, update domain.ProfileUpdate) (*domain.User, error) {
	return call[domain.User](ctx, c, h, http.MethodPut, "/auth/profile", nil, update)
}

func (c *Client) ChangePassword(ctx context.Context, h CredentialHolder, oldPassword, newPassword string) error {
	return c.send(ctx, h, http.MethodPut, "/auth/password", passwordChange{OldPassword: oldPassword, NewPassword: newPassword})
}
