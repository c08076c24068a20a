package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

func (c *Client) Announcements(ctx context.Context, h CredentialHolder) ([]domain.Announcement, error) {
	return getList[domain.Announcement](ctx, c, h, "/announcements", nil)
}

func (c *Client) LatestAnnouncements(ctx context.Context, h CredentialHolder, limit int) ([]domain.Announcement, error) {
	return getList[domain.Announcement](ctx, c, h, "/announcements/latest", url.Values{"limit": {strconv.Itoa(limit)}})
}

func (c *Client) Announcement(ctx context.Context, h CredentialHolder, id uint) (*domain.Announcement, error) {
	return call[domain.Announcement](ctx, c, h, http.MethodGet, fmt.Sprintf("/announcements/%d", id), nil, nil)
}

func (c *Client) Page(ctx context.Context, h CredentialHolder, slug string) (*domain.Page, error) {
	return call[domain.Page](ctx, c, h, http.MethodGet, "/pages/"+url.PathEscape(slug), nil, nil)
}

func (c *Client) AdminPages(ctx context.Context, h CredentialHolder) ([]domain.Page, error) {
	return getList[domain.Page](ctx, c, h, "/admin/pages", nil)
}

type pageUpdate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (c *Client) UpdatePage(ctx context.Context, h CredentialHolder, slug, title, content string) (*domain.Page, error) {
	return call[domain.Page](ctx, c, h, http.MethodPut, "/admin/pages/"+url.PathEscape(slug), nil, pageUpdate{Title: title, Content: content})
}

// SiteSettings reads the public settings map. Satisfies the settings cache source.
func (c *Client) SiteSettings(ctx context.Context) (*domain.SiteSettings, error) {
	return call[domain.SiteSettings](ctx, c, Anonymous{}, http.MethodGet, "/settings", nil, nil)
}

type settingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AdminSettings reads the full settings table and folds it into SiteSettings.
func (c *Client) AdminSettings(ctx context.Context, h CredentialHolder) (*domain.SiteSettings, error) {
	rows, err := getList[settingRow](ctx, c, h, "/admin/settings", nil)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	s := settingsFromMap(values)
	return &s, nil
}

func (c *Client) UpdateSettings(ctx context.Context, h CredentialHolder, s domain.SiteSettings) error {
	return c.send(ctx, h, http.MethodPut, "/admin/settings", settingsToMap(s))
}

func settingsFromMap(m map[string]string) domain.SiteSettings {
	return domain.SiteSettings{
		MainTitle:       m["main_title"],
		SiteTitle:       m["site_title"],
		SiteSubtitle:    m["site_subtitle"],
		SiteDescription: m["site_description"],
		BackgroundURL:   m["background_url"],
		FaviconURL:      m["favicon_url"],
		FooterText:      m["footer_text"],
	}
}

func settingsToMap(s domain.SiteSettings) map[string]string {
	return map[string]string{
		"main_title":       s.MainTitle,
		"site_title":       s.SiteTitle,
		"site_subtitle":    s.SiteSubtitle,
		"site_description": s.SiteDescription,
		"background_url":   s.BackgroundURL,
		"favicon_url":      s.FaviconURL,
		"footer_text":      s.FooterText,
	}
}
