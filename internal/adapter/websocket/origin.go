package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
)

// NewCheckOrigin allows empty origins (non-browser clients) and origins whose
// host matches the request host. When isDevelopment is true, localhost origins
// are additionally allowed.
func NewCheckOrigin(isDevelopment bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && u.Host != "" && u.Host == r.Host {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
