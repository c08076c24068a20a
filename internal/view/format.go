package view

import (
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pscheid92/hxzd-portal/internal/domain"
)

const (
	dateLayout     = "2006/01/02"
	dateTimeLayout = "2006/01/02 15:04"

	// Placeholder shown for missing values.
	Dash = "—"

	AnonymousAuthor = "匿名"
)

// FormatDate renders t as a calendar date in loc. Zero times render as Dash.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Dash
	}
	return t.In(loc).Format(dateLayout)
}

func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Dash
	}
	return t.In(loc).Format(dateTimeLayout)
}

// OrDash returns s, or Dash when s is blank.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Dash
	}
	return s
}

func AuthorName(u *domain.User) string {
	if u == nil || u.Username == "" {
		return AnonymousAuthor
	}
	return u.Username
}

// AvatarInitial is the upper-cased first character of a username.
func AvatarInitial(username string) string {
	r, _ := utf8.DecodeRuneInString(username)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// MCHeadsURL is the avatar image for a Minecraft id, or "" when none is set.
func MCHeadsURL(minecraftID string) string {
	if minecraftID == "" {
		return ""
	}
	return "https://mc-heads.net/avatar/" + url.PathEscape(minecraftID) + "/128"
}
