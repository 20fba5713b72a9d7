// Package control — WebSocket-сервер управления: принимает события и рассылает срабатывания.
package control

import (
	"Xtion/internal/app/runner"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Config struct {
	BindAddr  string
	Path      string
	AuthToken string
}

// Submitter — получатель событий (runner.Runner).
type Submitter interface {
	Submit(ev runner.Event) bool
	Status() runner.Status
}

type Server struct {
	cfg      Config
	sub      Submitter
	logger   *zap.SugaredLogger
	srv      *http.Server
	upgrader websocket.Upgrader
	running  atomic.Bool

	mu      sync.Mutex
	addr    string
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	clientQueue = 32
	writeWait   = 5 * time.Second
	maxMessage  = 64 << 10
)

func New(cfg Config, sub Submitter, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:8081"
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:     cfg,
		sub:     sub,
		logger:  logger,
		addr:    cfg.BindAddr,
		clients: map[*client]struct{}{},
		// сервер слушает локальный адрес, Origin не проверяем
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleWS)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start начинает слушать адрес и сразу возвращается. Отмена ctx останавливает сервер.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		s.logger.Infow("Control server listening", "addr", s.Addr(), "path", s.cfg.Path, "auth", s.cfg.AuthToken != "")
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Control server stopped with error", "error", err)
		} else {
			s.logger.Infow("Control server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("control server shutdown timeout"))
	defer cancel()

	// Shutdown не закрывает перехваченные WebSocket-соединения
	s.mu.Lock()
	for c := range s.clients {
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// Addr возвращает фактический адрес после Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Broadcast отправляет v всем клиентам. Медленный клиент теряет сообщение.
func (s *Server) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Warnw("Broadcast marshal failed", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- b:
		default:
			s.logger.Debugw("Client queue full, message dropped", "remote", c.conn.RemoteAddr().String())
		}
	}
}

func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxMessage)
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Infow("Control client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(c, done)
	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	close(done)
	_ = conn.Close()
	s.logger.Infow("Control client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) readLoop(c *client) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		rep := s.handle(data)
		b, err := json.Marshal(rep)
		if err != nil {
			continue
		}
		select {
		case c.send <- b:
		default:
		}
	}
}

func (s *Server) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (s *Server) handle(data []byte) Reply {
	var m Inbound
	if err := json.Unmarshal(data, &m); err != nil {
		return Reply{Type: TypeError, Error: "invalid json: " + err.Error()}
	}
	if m.Type == TypeStatus {
		st := s.sub.Status()
		return Reply{Type: TypeStatus, Status: &st}
	}
	ev, ok := m.event()
	if !ok {
		return Reply{Type: TypeError, Error: "unknown message type " + m.Type}
	}
	accepted := s.sub.Submit(ev)
	if m.Type == TypeConfigChanged {
		s.logger.Infow("Reload requested over control socket", "accepted", accepted)
	}
	return Reply{Type: TypeAck, Accepted: accepted}
}
