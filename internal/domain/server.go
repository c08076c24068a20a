package domain

import "context"

type ServerEntry struct {
	ID         uint   `json:"id,omitempty"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	ServerType string `json:"server_type"`
	SortOrder  int    `json:"sort_order"`
	Enabled    bool   `json:"enabled"`
}

func (s ServerEntry) ItemID() uint { return s.ID }

type Player struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type PlayerCount struct {
	Online int      `json:"online"`
	Max    int      `json:"max"`
	List   []Player `json:"list,omitempty"`
}

// ServerStatus is one entry of the status-poll resource, keyed by ServerID.
type ServerStatus struct {
	ServerID   uint        `json:"server_id"`
	ServerName string      `json:"server_name"`
	Address    string      `json:"address"`
	Online     bool        `json:"online"`
	Version    string      `json:"version"`
	ServerType string      `json:"server_type"`
	MOTD       string      `json:"motd"`
	MOTDHTML   string      `json:"motd_html"`
	Players    PlayerCount `json:"players"`
	Icon       string      `json:"icon,omitempty"`
	Software   string      `json:"software,omitempty"`
}

type StatusOverview struct {
	Servers     []ServerStatus `json:"servers"`
	TotalOnline int            `json:"total_online"`
	TotalMax    int            `json:"total_max"`
}

// ByServerID indexes statuses for joining onto ServerEntry rows.
func (o *StatusOverview) ByServerID() map[uint]ServerStatus {
	m := make(map[uint]ServerStatus, len(o.Servers))
	for _, s := range o.Servers {
		m[s.ServerID] = s
	}
	return m
}

// FirstOnline returns the first online server, if any.
func (o *StatusOverview) FirstOnline() (ServerStatus, bool) {
	for _, s := range o.Servers {
		if s.Online {
			return s, true
		}
	}
	return ServerStatus{}, false
}

type StatusEmbedConfig struct {
	EmbedURL        string `json:"embed_url"`
	MCServerAddress string `json:"mc_server_address,omitempty"`
	MCServerPort    int    `json:"mc_server_port,omitempty"`
}

// StatusPublisher receives every freshly polled overview.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, overview *StatusOverview) error
}
