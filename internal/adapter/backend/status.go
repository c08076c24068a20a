package backend

import (
	"context"
	"net/http"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

// StatusOverview fetches the aggregated status of all enabled servers.
func (c *Client) StatusOverview(ctx context.Context) (*domain.StatusOverview, error) {
	return call[domain.StatusOverview](ctx, c, Anonymous{}, http.MethodGet, "/server-status", nil, nil)
}

func (c *Client) StatusConfig(ctx context.Context) (*domain.StatusEmbedConfig, error) {
	return call[domain.StatusEmbedConfig](ctx, c, Anonymous{}, http.MethodGet, "/server-status/config", nil, nil)
}

func (c *Client) AdminStatusConfig(ctx context.Context, h CredentialHolder) (*domain.StatusEmbedConfig, error) {
	return call[domain.StatusEmbedConfig](ctx, c, h, http.MethodGet, "/admin/server-status/config", nil, nil)
}

func (c *Client) UpdateStatusConfig(ctx context.Context, h CredentialHolder, cfg domain.StatusEmbedConfig) (*domain.StatusEmbedConfig, error) {
	return call[domain.StatusEmbedConfig](ctx, c, h, http.MethodPut, "/admin/server-status/config", nil, cfg)
}

// RefreshStatus asks the backend to re-query every game server.
func (c *Client) RefreshStatus(ctx context.Context, h CredentialHolder) error {
	return c.send(ctx, h, http.MethodPost, "/admin/server-status/refresh", nil)
}

func (c *Client) WorldMaps(ctx context.Context, h CredentialHolder) ([]domain.WorldMap, error) {
	return getList[domain.WorldMap](ctx, c, h, "/world-maps", nil)
}
