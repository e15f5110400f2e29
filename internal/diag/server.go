// Package diag serves read-only diagnostics for a grid and its path
// serializer: the lattice with the last path, Prometheus metrics, and a
// websocket stream of completed requests.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdrpinto/gridpath"
)

const writeTimeout = 5 * time.Second

// Server exposes diagnostics over HTTP.
type Server struct {
	grid   *gridpath.Grid
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closing     bool
	streams     sync.WaitGroup
}

// subscriber is one websocket completion stream. Publish fills send; the
// connection is kept so shutdown can close hijacked streams.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer creates a diagnostics server for grid.
func NewServer(grid *gridpath.Grid, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		grid:   grid,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /grid", s.handleGrid)
	mux.HandleFunc("GET /grid.txt", s.handleGridText)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/completions", s.handleCompletions)
	return mux
}

// Publish forwards a completion to every websocket subscriber. It never
// blocks: slow subscribers drop messages. Register it with
// gridpath.WithCompletionHook.
func (s *Server) Publish(completion gridpath.Completion) {
	payload, err := json.Marshal(completion)
	if err != nil {
		s.logger.Warn("encode completion", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		select {
		case sub.send <- payload:
		default:
		}
	}
}

// subscribe registers conn, or returns nil once shutdown has begun.
func (s *Server) subscribe(conn *websocket.Conn) *subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, 64)}
	s.subscribers[sub] = struct{}{}
	s.streams.Add(1)
	return sub
}

func (s *Server) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	delete(s.subscribers, sub)
	s.mu.Unlock()
	s.streams.Done()
}

// closeStreams refuses new subscribers, sends a going-away close frame to
// every open stream and closes its connection. http.Server.Shutdown does
// not track hijacked websocket connections.
func (s *Server) closeStreams() {
	s.mu.Lock()
	s.closing = true
	open := make([]*subscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		open = append(open, sub)
	}
	s.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for _, sub := range open {
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = sub.conn.Close()
	}
}

// Subscribers is the number of connected completion streams.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.grid.Snapshot())
}

func (s *Server) handleGridText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Render(s.grid.Snapshot(), nil)))
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.subscribe(conn)
	if sub == nil {
		return
	}
	defer s.unsubscribe(sub)
	s.logger.Debug("completion subscriber joined", "remote", r.RemoteAddr)

	// Reader goroutine only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case payload := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully: open
// completion streams are closed and Serve returns once their handlers exit.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.logger.Info("diagnostics listening", "addr", ln.Addr().String())

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		s.closeStreams()
		s.streams.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.closeStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-served
	s.streams.Wait()
	return err
}
