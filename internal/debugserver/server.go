// Package debugserver streams a running gameboy.Core's register/PPU/timer
// state to any number of connected websocket clients, for a browser-based
// or remote debugger to watch without instrumenting the core itself.
package debugserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmgcore/gbcore/internal/debug"
	"github.com/dmgcore/gbcore/internal/gameboy"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server periodically captures a debug.Snapshot of a Core and fans it out
// as JSON to every connected websocket client.
type Server struct {
	core     *gameboy.Core
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New returns a Server that captures core's state every interval (a zero
// or negative interval defaults to 10 times per second).
func New(core *gameboy.Core, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Server{
		core:       core,
		interval:   interval,
		log:        slog.Default().With("component", "debugserver"),
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
	}
}

// ListenAndServe blocks serving websocket connections on addr (e.g.
// ":6061") at "/debug", running the broadcast loop and the periodic
// snapshot capture alongside it. It returns only on a listener error.
func (s *Server) ListenAndServe(addr string) error {
	go s.run()
	go s.captureLoop()

	mux := http.NewServeMux()
	mux.HandleFunc("/debug", s.handleWS)
	s.log.Info("debugserver listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}
	s.register <- c
	go s.writePump(c)
	go s.readPump(c)
}

// readPump's only job is to notice the client going away; this feed is
// one-directional, so any inbound message is ignored.
func (s *Server) readPump(c *client) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) run() {
	for {
		select {
		case c := <-s.register:
			s.mu.Lock()
			s.clients[c] = true
			s.mu.Unlock()
		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}
			s.mu.Unlock()
		case msg := <-s.broadcast:
			s.mu.Lock()
			for c := range s.clients {
				select {
				case c.send <- msg:
				default:
					delete(s.clients, c)
					close(c.send)
				}
			}
			s.mu.Unlock()
		}
	}
}

// captureLoop encodes a debug.Snapshot of the core every interval and
// hands it to the broadcast loop. The snapshot is only taken (and only
// JSON-marshalled) when at least one client is connected, since nothing
// else reads s.broadcast.
func (s *Server) captureLoop() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for range t.C {
		s.mu.Lock()
		n := len(s.clients)
		s.mu.Unlock()
		if n == 0 {
			continue
		}
		data, err := json.Marshal(debug.Capture(s.core))
		if err != nil {
			s.log.Warn("snapshot marshal failed", "error", err)
			continue
		}
		s.broadcast <- data
	}
}
