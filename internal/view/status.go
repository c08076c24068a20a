package view

import (
	"fmt"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

type StatusBadge struct {
	Text  string
	Class string
	Color string
}

var (
	badgeOnline   = StatusBadge{Text: "在线", Class: "online", Color: "#4ade80"}
	badgeOffline  = StatusBadge{Text: "离线", Class: "offline", Color: "#f87171"}
	badgeNoServer = StatusBadge{Text: "无服务器", Class: "offline", Color: "#f87171"}
)

func Badge(online bool) StatusBadge {
	if online {
		return badgeOnline
	}
	return badgeOffline
}

// PlayersText is "online / max" for a reachable server and Dash otherwise.
func PlayersText(s domain.ServerStatus) string {
	if !s.Online {
		return Dash
	}
	return fmt.Sprintf("%d / %d", s.Players.Online, s.Players.Max)
}

// ServerType prefers the configured type over the reported software.
func ServerType(s domain.ServerStatus) string {
	if s.ServerType != "" {
		return s.ServerType
	}
	return OrDash(s.Software)
}

// ServerCard is the home page info card for one server of the rotation.
type ServerCard struct {
	Empty   bool
	Label   string
	Address string
	Version string
	Type    string
	Players string
	Badge   StatusBadge
}

// NewServerCard describes servers[idx]. The position label is only shown
// when there is more than one server to rotate through.
func NewServerCard(servers []domain.ServerStatus, idx int) ServerCard {
	if len(servers) == 0 || idx < 0 || idx >= len(servers) {
		return ServerCard{Empty: true, Badge: badgeNoServer, Version: Dash, Type: Dash, Players: Dash}
	}

	s := servers[idx]
	card := ServerCard{
		Address: s.Address,
		Version: OrDash(s.Version),
		Type:    ServerType(s),
		Players: PlayersText(s),
		Badge:   Badge(s.Online),
	}
	if len(servers) > 1 {
		card.Label = fmt.Sprintf("(%d/%d) %s", idx+1, len(servers), s.ServerName)
	}
	return card
}

// OfflineCard is shown while no status overview could be loaded at all.
func OfflineCard() ServerCard {
	return ServerCard{Empty: true, Badge: badgeOffline, Version: Dash, Type: Dash, Players: Dash}
}
