package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		id := NewID()
		require.Len(t, id, idLen)
		require.True(t, validIncoming(id), id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 200)
}

func TestID(t *testing.T) {
	id, ok := ID(WithID(context.Background(), "poll-7f3a"))
	assert.True(t, ok)
	assert.Equal(t, "poll-7f3a", id)

	_, ok = ID(context.Background())
	assert.False(t, ok)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)
}

func captureLogs(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewHandler(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestHandler(t *testing.T) {
	t.Run("request scoped", func(t *testing.T) {
		var buf bytes.Buffer
		captureLogs(&buf).InfoContext(WithID(context.Background(), "ab12cd34ef56"), "Rendered page", "route", "/forum")

		out := buf.String()
		assert.Contains(t, out, "correlation_id=ab12cd34ef56")
		assert.Contains(t, out, "route=/forum")
	})

	t.Run("background work without id", func(t *testing.T) {
		var buf bytes.Buffer
		captureLogs(&buf).InfoContext(context.Background(), "Sweeper tick")

		assert.NotContains(t, buf.String(), "correlation_id")
	})

	t.Run("derived logger keeps id", func(t *testing.T) {
		var buf bytes.Buffer
		logger := captureLogs(&buf).With("component", "status_poller").WithGroup("poll")
		logger.InfoContext(WithID(context.Background(), "feedbeef0001"), "Poll done", "servers", 3)

		out := buf.String()
		assert.Contains(t, out, "component=status_poller")
		assert.Contains(t, out, "poll.servers=3")
		assert.Contains(t, out, "feedbeef0001")
	})
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"proxy id reused", "proxy-id_42", true},
		{"uuid reused", "3f2b8c1e-9d4a-4c7e-8b1a-0e5f6a7b8c9d", true},
		{"missing", "", false},
		{"header injection", "abc\nevil", false},
		{"spaces", "abc def", false},
		{"too long", strings.Repeat("a", maxIncomingIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header[Header] = []string{tt.header}
			}

			id := FromRequest(req)
			if tt.reuse {
				assert.Equal(t, tt.header, id)
				return
			}
			assert.Len(t, id, idLen)
			assert.NotEqual(t, tt.header, id)
		})
	}
}

func TestInject(t *testing.T) {
	h := http.Header{}
	Inject(WithID(context.Background(), "feedbeef0001"), h)
	assert.Equal(t, "feedbeef0001", h.Get(Header))

	empty := http.Header{}
	Inject(context.Background(), empty)
	assert.Empty(t, empty.Values(Header))
}
