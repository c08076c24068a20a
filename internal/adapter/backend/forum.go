package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

func (c *Client) Posts(ctx context.Context, h CredentialHolder, q domain.PostQuery) (*domain.PostPage, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}
	if q.Category != "" {
		query.Set("category", string(q.Category))
	}
	return call[domain.PostPage](ctx, c, h, http.MethodGet, "/forum/posts", query, nil)
}

func (c *Client) Post(ctx context.Context, h CredentialHolder, id uint) (*domain.ForumPost, error) {
	return call[domain.ForumPost](ctx, c, h, http.MethodGet, fmt.Sprintf("/forum/posts/%d", id), nil, nil)
}

func (c *Client) CreatePost(ctx context.Context, h CredentialHolder, in domain.PostInput) (*domain.ForumPost, error) {
	return call[domain.ForumPost](ctx, c, h, http.MethodPost, "/forum/posts", nil, in)
}

// UpdatePost sends a partial update; it also carries the admin pin toggle.
func (c *Client) UpdatePost(ctx context.Context, h CredentialHolder, id uint, in domain.PostInput) (*domain.ForumPost, error) {
	return call[domain.ForumPost](ctx, c, h, http.MethodPut, fmt.Sprintf("/forum/posts/%d", id), nil, in)
}

func (c *Client) DeletePost(ctx context.Context, h CredentialHolder, id uint) error {
	return c.send(ctx, h, http.MethodDelete, fmt.Sprintf("/forum/posts/%d", id), nil)
}

type commentInput struct {
	Content string `json:"content"`
}

func (c *Client) CreateComment(ctx context.Context, h CredentialHolder, postID uint, content string) (*domain.Comment, error) {
	return call[domain.Comment](ctx, c, h, http.MethodPost, fmt.Sprintf("/forum/posts/%d/comments", postID), nil, commentInput{Content: content})
}

func (c *Client) DeleteComment(ctx context.Context, h CredentialHolder, commentID uint) error {
	return c.send(ctx, h, http.MethodDelete, fmt.Sprintf("/forum/comments/%d", commentID), nil)
}
