package websocket

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	const host = "mc.hxzd.example"

	tests := []struct {
		name   string
		origin string
		dev    bool
		want   bool
	}{
		{"no origin header", "", false, true},
		{"same host", "https://mc.hxzd.example", false, true},
		{"same host over http", "http://mc.hxzd.example", false, true},
		{"foreign host", "https://evil.example", false, false},
		{"subdomain", "https://www.mc.hxzd.example", false, false},
		{"other port", "https://mc.hxzd.example:8443", false, false},
		{"garbage", "::not a url", false, false},
		{"localhost in development", "http://localhost:8000", true, true},
		{"loopback in development", "http://127.0.0.1:8000", true, true},
		{"localhost in production", "http://localhost:8000", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws/status", nil)
			req.Host = host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, NewCheckOrigin(tt.dev)(req))
		})
	}
}
