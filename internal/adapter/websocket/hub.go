// Package websocket pushes status overviews to browsers on the status page.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/hxzd-portal/internal/adapter/metrics"
	"github.com/pscheid92/hxzd-portal/internal/domain"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 4
)

var (
	ErrTooManyClients = errors.New("websocket connection limit reached")
	ErrHubStopped     = errors.New("status hub stopped")
)

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn  *websocket.Conn
	errCh chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct {
	done chan struct{}
}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	sent   func()
}

func newClientWriter(conn *websocket.Conn, sent func()) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		sent:   sent,
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg := <-cw.sendCh:
			_ = cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			cw.sent()
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	_ = cw.conn.Close()
}

// --- Hub ---

// Hub fans every status overview out to all connected browsers. All state is
// owned by the run goroutine; callers talk to it through commands.
type Hub struct {
	cmdCh      chan hubCmd
	clients    map[*websocket.Conn]*clientWriter
	last       []byte
	maxClients int
	metrics    *metrics.WebSocketMetrics
	stopped    chan struct{}
}

func NewHub(maxClients int, m *metrics.WebSocketMetrics) *Hub {
	hub := &Hub{
		cmdCh:      make(chan hubCmd, 64),
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		metrics:    m,
		stopped:    make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.conn)
		case cmdBroadcast:
			h.last = c.data
			h.handleBroadcast(c.data)
		case cmdClientCount:
			c.replyCh <- len(h.clients)
		case cmdStop:
			for conn, cw := range h.clients {
				cw.stop()
				delete(h.clients, conn)
			}
			h.metrics.ActiveConnections.Set(0)
			close(h.stopped)
			close(c.done)
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= h.maxClients {
		h.metrics.Rejected.Inc()
		c.errCh <- fmt.Errorf("%w (%d)", ErrTooManyClients, h.maxClients)
		return
	}

	cw := newClientWriter(c.conn, h.metrics.MessagesPublished.Inc)
	h.clients[c.conn] = cw
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	if h.last != nil {
		cw.sendCh <- h.last
	}
	slog.Debug("Status client registered", "clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, ok := h.clients[conn]
	if !ok {
		return
	}
	cw.stop()
	delete(h.clients, conn)
	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("Status client unregistered", "clients", len(h.clients))
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- data:
		default:
			slow = append(slow, conn)
		}
	}
	for _, conn := range slow {
		slog.Warn("Dropping slow status client", "remote_addr", conn.RemoteAddr().String())
		h.handleUnregister(conn)
	}
}

// send delivers cmd unless the hub has stopped.
func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.stopped:
		return false
	default:
	}
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.stopped:
		return false
	}
}

// Register adds conn and replays the latest overview to it.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	if !h.send(cmdRegister{conn: conn, errCh: errCh}) {
		return ErrHubStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.stopped:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.send(cmdUnregister{conn: conn})
}

// PublishStatus implements domain.StatusPublisher.
func (h *Hub) PublishStatus(_ context.Context, overview *domain.StatusOverview) error {
	data, err := json.Marshal(overview)
	if err != nil {
		return fmt.Errorf("failed to marshal status overview: %w", err)
	}
	if !h.send(cmdBroadcast{data: data}) {
		return ErrHubStopped
	}
	return nil
}

func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(cmdClientCount{replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.stopped:
		return 0
	}
}

// Stop closes every connection and ends the hub goroutine.
func (h *Hub) Stop() {
	done := make(chan struct{})
	if h.send(cmdStop{done: done}) {
		<-done
	}
}
