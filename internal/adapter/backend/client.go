package backend

import (
	"context"
	"net/http"
	"net/url"
)

// Client exposes typed calls for every backend resource.
type Client struct {
	gw *Gateway
}

func NewClient(gw *Gateway) *Client {
	return &Client{gw: gw}
}

func call[T any](ctx context.Context, c *Client, h CredentialHolder, method, path string, query url.Values, body any) (*T, error) {
	resp, err := c.gw.Do(ctx, h, Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		return nil, err
	}
	return DecodeJSON[T](resp)
}

func (c *Client) send(ctx context.Context, h CredentialHolder, method, path string, body any) error {
	resp, err := c.gw.Do(ctx, h, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return expectOK(resp)
}

func getList[T any](ctx context.Context, c *Client, h CredentialHolder, path string, query url.Values) ([]T, error) {
	items, err := call[[]T](ctx, c, h, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return *items, nil
}
