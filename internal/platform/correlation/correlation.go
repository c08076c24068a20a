// Package correlation carries a per-request id through contexts, log records
// and outbound backend calls.
package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header is the HTTP header used to accept and propagate correlation ids.
const Header = "X-Request-ID"

const (
	maxIncomingIDLen = 64
	idLen            = 12
)

type contextKey struct{}

// NewID returns a short random id, long enough to tell concurrent requests
// and status polls apart in the logs.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLen]
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// FromRequest reuses a well-formed incoming X-Request-ID (set by a proxy) or mints a new one.
func FromRequest(r *http.Request) string {
	if id := r.Header.Get(Header); validIncoming(id) {
		return id
	}
	return NewID()
}

// Inject copies the correlation ID from ctx onto outbound request headers.
func Inject(ctx context.Context, h http.Header) {
	if id, ok := ID(ctx); ok {
		h.Set(Header, id)
	}
}

func validIncoming(id string) bool {
	if id == "" || len(id) > maxIncomingIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Handler wraps an existing slog.Handler to automatically inject a
// "correlation_id" attribute when the context carries one.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
