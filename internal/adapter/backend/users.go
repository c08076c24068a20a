package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

func (c *Client) Users(ctx context.Context, h CredentialHolder) ([]domain.User, error) {
	return getList[domain.User](ctx, c, h, "/admin/users", nil)
}

type roleUpdate struct {
	Role domain.Role `json:"role"`
}

func (c *Client) SetUserRole(ctx context.Context, h CredentialHolder, id uint, role domain.Role) error {
	return c.send(ctx, h, http.MethodPut, fmt.Sprintf("/admin/users/%d/role", id), roleUpdate{Role: role})
}

type passwordReset struct {
	NewPassword string `json:"new_password"`
}

func (c *Client) ResetUserPassword(ctx context.Context, h CredentialHolder, id uint, password string) error {
	return c.send(ctx, h, http.MethodPut, fmt.Sprintf("/admin/users/%d/password", id), passwordReset{NewPassword: password})
}

func (c *Client) DeleteUser(ctx context.Context, h CredentialHolder, id uint) error {
	return c.send(ctx, h, http.MethodDelete, fmt.Sprintf("/admin/users/%d", id), nil)
}
