package domain

import "time"

type WorldMap struct {
	ID        uint   `json:"id,omitempty"`
	Name      string `json:"name"`
	EmbedURL  string `json:"embed_url"`
	SortOrder int    `json:"sort_order"`
	Enabled   bool   `json:"enabled"`
}

func (m WorldMap) ItemID() uint { return m.ID }

// SiteSettings is the singleton key/value settings resource.
type SiteSettings struct {
	MainTitle       string `json:"main_title"`
	SiteTitle       string `json:"site_title"`
	SiteSubtitle    string `json:"site_subtitle"`
	SiteDescription string `json:"site_description"`
	BackgroundURL   string `json:"background_url"`
	FaviconURL      string `json:"favicon_url"`
	FooterText      string `json:"footer_text"`
}

const DefaultMainTitle = "HXZD"

// DisplayTitle falls back to the built-in brand when no main title is configured.
func (s SiteSettings) DisplayTitle() string {
	if s.MainTitle == "" {
		return DefaultMainTitle
	}
	return s.MainTitle
}

type Page struct {
	ID        uint      `json:"id,omitempty"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
