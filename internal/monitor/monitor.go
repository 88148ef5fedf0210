// Package monitor implements a read-only operator feed: a websocket
// broadcast of the terminal's screen and sync status, advertised on the
// local network via mDNS so a supervisor dashboard can find the
// terminal without manual configuration. It is observability only — no
// client can write back through it, unlike the NFC agent's writer
// WebSocket this is adapted from.
package monitor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceName = "zeiterfassung-terminal"
	mdnsServiceType = "_zeit-terminal._tcp"
	mdnsDomain      = "local."
)

// Event is one broadcast frame. Kind is "state" for a screen change, or
// "sync" for a completed sync pass.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// StateSnapshot is the "state" event payload.
type StateSnapshot struct {
	Screen       string `json:"screen"`
	PendingCount int    `json:"pendingCount"`
	Online       bool   `json:"online"`
}

// SyncSnapshot is the "sync" event payload.
type SyncSnapshot struct {
	SyncedCount  int `json:"syncedCount"`
	PendingCount int `json:"pendingCount"`
}

// Server broadcasts Events to every connected websocket client and
// advertises itself over mDNS.
type Server struct {
	terminalID string
	port       int

	httpServer *http.Server
	upgrader   websocket.Upgrader
	mdns       *zeroconf.Server

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]bool
}

// New builds a monitor Server bound to port, identifying itself as
// terminalID in mDNS text records.
func New(terminalID string, port int) *Server {
	return &Server{
		terminalID: terminalID,
		port:       port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Start begins serving /monitor and registers the mDNS advertisement.
// The HTTP listener runs on a background goroutine and Start does not wait
// for it to come up. Start always returns nil: a listener error (including
// a failure to bind the port) and a failed mDNS registration are logged,
// not returned, matching how the teacher's Start treats a failed mDNS
// registration as non-fatal.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/monitor", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("monitor: HTTP server error: %v", err)
		}
	}()

	if err := s.startMDNS(); err != nil {
		log.Printf("monitor: mDNS registration failed, continuing without auto-discovery: %v", err)
	}

	return nil
}

func (s *Server) startMDNS() error {
	txt := []string{
		"terminalId=" + s.terminalID,
		"path=/monitor",
	}
	server, err := zeroconf.Register(mdnsServiceName, mdnsServiceType, mdnsDomain, s.port, txt, nil)
	if err != nil {
		return fmt.Errorf("monitor: registering mDNS service: %w", err)
	}
	s.mdns = server
	return nil
}

// Stop shuts down the HTTP listener and mDNS advertisement.
func (s *Server) Stop() {
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			log.Printf("monitor: shutdown error: %v", err)
		}
		s.httpServer = nil
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: websocket upgrade error: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	// The feed is read-only: drain and discard anything a client sends,
	// purely to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastState publishes a screen-state snapshot to every connected client.
func (s *Server) BroadcastState(snap StateSnapshot) {
	s.broadcast("state", snap)
}

// BroadcastSync publishes a completed sync pass to every connected client.
func (s *Server) BroadcastSync(snap SyncSnapshot) {
	s.broadcast("sync", snap)
}

func (s *Server) broadcast(kind string, payload any) {
	event := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("monitor: write error, dropping client: %v", err)
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
