package view

import (
	"html/template"
	"time"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

// Funcs is the template function map. Dates render in loc.
func Funcs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.Local
	}
	return template.FuncMap{
		"date":          func(t time.Time) string { return FormatDate(t, loc) },
		"datetime":      func(t time.Time) string { return FormatDateTime(t, loc) },
		"orDash":        OrDash,
		"author":        AuthorName,
		"initial":       AvatarInitial,
		"mcHeads":       MCHeadsURL,
		"categoryLabel": CategoryLabel,
		"forumURL":      ForumURL,
		"badge":         Badge,
		"players":       PlayersText,
		"serverType":    ServerType,
		"canModerate":   domain.CanModerate,
		// trusted marks backend-authored HTML (page bodies, MOTD markup) as safe.
		"trusted": func(s string) template.HTML { return template.HTML(s) },
	}
}
