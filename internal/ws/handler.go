package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"outreach_engine/internal/logbus"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Handler streams bus messages (logs and task states) to dashboard clients.
// Query params: types=log,task narrows message types; level=warn drops quieter log lines.
type Handler struct {
	bus          *logbus.Bus
	allowOrigins []string
	upgrader     websocket.Upgrader
}

func NewHandler(bus *logbus.Bus, allowOrigins []string) *Handler {
	h := &Handler{
		bus:          bus,
		allowOrigins: allowOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

type filter struct {
	types    map[string]struct{}
	minLevel int
}

func parseFilter(r *http.Request) filter {
	f := filter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("types")); raw != "" {
		f.types = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.types[t] = struct{}{}
			}
		}
	}
	f.minLevel = levelRank[strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))]
	return f
}

func (f filter) allow(msg logbus.Message) bool {
	if f.types != nil {
		if _, ok := f.types[msg.Type]; !ok {
			return false
		}
	}
	if f.minLevel > 0 && msg.Type == logbus.TypeLog {
		if d, ok := msg.Data.(logbus.LogData); ok && levelRank[d.Level] < f.minLevel {
			return false
		}
	}
	return true
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Subscribe before replaying the snapshot so nothing published in between is lost.
	ch, cancel := h.bus.Subscribe(256)
	defer cancel()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	for _, msg := range h.bus.Snapshot() {
		if !f.allow(msg) {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !f.allow(msg) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
