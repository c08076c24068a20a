package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

// ErrNoItemEndpoint is returned by Collection.Get when the resource has no single-item read.
var ErrNoItemEndpoint = errors.New("resource has no single-item endpoint")

// Collection is a listable resource with admin writes: POST {WritePath},
// PUT {WritePath}/{id}, DELETE {WritePath}/{id}.
type Collection[T any] struct {
	client    *Client
	ListPath  string
	WritePath string
	ItemPath  string
}

func (col Collection[T]) List(ctx context.Context, h CredentialHolder) ([]T, error) {
	return getList[T](ctx, col.client, h, col.ListPath, nil)
}

func (col Collection[T]) Get(ctx context.Context, h CredentialHolder, id uint) (*T, error) {
	if col.ItemPath == "" {
		return nil, ErrNoItemEndpoint
	}
	return call[T](ctx, col.client, h, http.MethodGet, fmt.Sprintf("%s/%d", col.ItemPath, id), nil, nil)
}

func (col Collection[T]) Create(ctx context.Context, h CredentialHolder, body any) (*T, error) {
	return call[T](ctx, col.client, h, http.MethodPost, col.WritePath, nil, body)
}

func (col Collection[T]) Update(ctx context.Context, h CredentialHolder, id uint, body any) (*T, error) {
	return call[T](ctx, col.client, h, http.MethodPut, fmt.Sprintf("%s/%d", col.WritePath, id), nil, body)
}

func (col Collection[T]) Delete(ctx context.Context, h CredentialHolder, id uint) error {
	return col.client.send(ctx, h, http.MethodDelete, fmt.Sprintf("%s/%d", col.WritePath, id), nil)
}

func (c *Client) AnnouncementCollection() Collection[domain.Announcement] {
	return Collection[domain.Announcement]{client: c, ListPath: "/announcements", WritePath: "/admin/announcements", ItemPath: "/announcements"}
}

func (c *Client) ServerCollection() Collection[domain.ServerEntry] {
	return Collection[domain.ServerEntry]{client: c, ListPath: "/admin/servers", WritePath: "/admin/servers"}
}

func (c *Client) WorldMapCollection() Collection[domain.WorldMap] {
	return Collection[domain.WorldMap]{client: c, ListPath: "/admin/world-maps", WritePath: "/admin/world-maps"}
}
