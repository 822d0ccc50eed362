// Package ws serves the mobile control client over WebSocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kilianp07/rcbase/core/control"
	"github.com/kilianp07/rcbase/core/monitoring"
	"github.com/kilianp07/rcbase/infra/logger"
)

// Config holds the listener settings.
type Config struct {
	Addr           string `json:"addr"`
	Path           string `json:"path"`
	WriteTimeoutMS int    `json:"write_timeout_ms"`
	SendBuffer     int    `json:"send_buffer"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Path == "" {
		c.Path = "/"
	}
	if c.WriteTimeoutMS <= 0 {
		c.WriteTimeoutMS = 250
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 4
	}
}

// Handler applies a raw command frame on behalf of an origin.
type Handler interface {
	Handle(ctx context.Context, origin string, payload []byte) error
}

// Sessions tracks which origin drives the fleet.
type Sessions interface {
	Claim(origin string) bool
	Release(origin string) bool
	Owner() (string, bool)
}

type client struct {
	id     string
	origin string
	conn   *websocket.Conn
	send   chan []byte
}

// Server accepts control connections. A client is identified by the host
// part of its remote address, so several sockets from one phone share a
// session. The session is claimed when an origin opens its first socket and
// released when its last socket closes; both happen under mu so the socket
// count and the session never disagree.
type Server struct {
	cfg      Config
	handler  Handler
	sessions Sessions
	log      logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	origins map[string]int
	ctx     context.Context
}

// NewServer creates a Server. Frames are handled with ctx.
func NewServer(ctx context.Context, cfg Config, h Handler, s Sessions) *Server {
	cfg.SetDefaults()
	return &Server{
		cfg:      cfg,
		handler:  h,
		sessions: s,
		log:      logger.New("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// mobile clients are not browsers and send arbitrary origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		origins: make(map[string]int),
		ctx:     ctx,
	}
}

// ServeHTTP upgrades the request and serves the socket until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := &client{id: uuid.NewString(), origin: originOf(r), conn: conn, send: make(chan []byte, s.cfg.SendBuffer)}
	s.register(c)
	defer s.unregister(c)
	go s.writeLoop(c)
	s.readLoop(c)
}

func originOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.origins[c.origin]++
	first := s.origins[c.origin] == 1
	owns := first && s.sessions.Claim(c.origin)
	s.mu.Unlock()
	switch {
	case !first:
		s.log.Debugw("additional socket", map[string]any{"origin": c.origin, "conn": c.id})
	case owns:
		s.log.Infof("client %s connected and owns the session", c.origin)
	default:
		s.log.Infof("client %s connected as observer", c.origin)
	}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.origins[c.origin]--
	last := s.origins[c.origin] == 0
	released := false
	if last {
		delete(s.origins, c.origin)
		released = s.sessions.Release(c.origin)
	}
	close(c.send)
	s.mu.Unlock()
	_ = c.conn.Close()
	if released {
		s.log.Infof("client %s disconnected, session released", c.origin)
	}
}

func (s *Server) readLoop(c *client) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnf("read from %s: %v", c.origin, err)
			}
			return
		}
		if mt != websocket.BinaryMessage && mt != websocket.TextMessage {
			continue
		}
		if err := s.handler.Handle(s.ctx, c.origin, data); err != nil {
			s.log.Debugw("frame rejected", map[string]any{"origin": c.origin, "error": err.Error()})
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer monitoring.Recover()
	timeout := time.Duration(s.cfg.WriteTimeoutMS) * time.Millisecond
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			s.log.Warnf("write to %s: %v", c.origin, err)
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// Relay sends each pedal update as a one byte binary message to every socket
// of the session owner until ctx is done or updates is closed. Updates are
// dropped for sockets whose send buffer is full.
func (s *Server) Relay(ctx context.Context, updates <-chan control.PedalUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			owner, held := s.sessions.Owner()
			if !held {
				continue
			}
			s.broadcast(owner, []byte{u.Value})
		}
	}
}

func (s *Server) broadcast(origin string, msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.origin != origin {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients returns the number of open sockets.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves cfg.Path on cfg.Addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	srv := &http.Server{Addr: s.cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("shutdown: %v", err)
		}
		s.closeAll()
	}()
	s.log.Infof("listening on %s%s", s.cfg.Addr, s.cfg.Path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ws server: %w", err)
	}
	return nil
}

// closeAll closes every hijacked socket; Shutdown does not track them.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		_ = c.conn.Close()
	}
}
