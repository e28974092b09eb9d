package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/gorilla/websocket"
)

// server is the implementation of the Server interface.
type server struct {
	logger   log.Logger
	handler  Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	conns    map[*connection]struct{}
	stopping bool
	requests sync.WaitGroup
}

// Server accepts WebSocket connections and serves every request frame on its own goroutine.
type Server interface {
	http.Handler

	// Start listens on the address and serves in the background.
	//
	// Parameters:
	//   - address: host:port, port 0 picks a free port
	//
	// Returns:
	//   - error: error if the server is already running or the address cannot be bound
	Start(address string) error

	// Addr returns the bound listening address, or "" when stopped.
	Addr() string

	// Stop closes the listener and every connection, then waits for running requests.
	Stop() error
}

// connection is one accepted client. Writes are serialized, reads happen on one goroutine.
type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *connection) write(resp Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(resp)
}

// NewServer creates a Server dispatching to the handler.
//
// Parameters:
//   - handler: runs every received call
//
// Returns:
//   - Server: the server, not yet listening
func NewServer(handler Handler) Server {
	return &server{
		logger:  log.New("transport"),
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*connection]struct{}),
	}
}

func (s *server) Start(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return status.Errorf(status.Internal, "server already listening on %s", s.listener.Addr())
	}
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return status.Errorf(status.Internal, "listen on %s: %v", address, err)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, s)
	s.stopping = false
	s.listener = ln
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("serve: %v", err)
		}
	}(s.http)
	s.logger.Noticef("listening on %s", ln.Addr())
	return nil
}

func (s *server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *server) Stop() error {
	s.mu.Lock()
	s.stopping = true
	srv := s.http
	s.http, s.listener = nil, nil
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = srv.Shutdown(ctx)
		cancel()
	}
	for _, c := range conns {
		c.conn.Close()
	}
	s.requests.Wait()
	if srv != nil {
		s.logger.Notice("stopped")
	}
	return err
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		http.Error(w, "server is stopping", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warningf("upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	c := &connection{conn: ws}
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Infof("client %s connected", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		ws.Close()
		s.logger.Infof("client %s disconnected", r.RemoteAddr)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugf("read from %s: %v", r.RemoteAddr, err)
			}
			return
		}
		var req Request
		if err := json.Unmarshal(frame, &req); err != nil {
			s.logger.Warningf("malformed frame from %s: %v", r.RemoteAddr, err)
			continue
		}
		if !s.track() {
			return
		}
		go s.serve(ctx, c, req)
	}
}

// track counts a new running request unless Stop has begun waiting for them.
func (s *server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.requests.Add(1)
	return true
}

// serve runs one request and writes its response.
func (s *server) serve(ctx context.Context, c *connection, req Request) {
	defer s.requests.Done()

	resp := Response{ID: req.ID}
	result, err := s.handle(ctx, req)
	if err == nil {
		resp.Result, err = json.Marshal(result)
		if err != nil {
			err = status.Errorf(status.Internal, "encode %s result: %v", req.Method, err)
		}
	}
	if err != nil {
		resp.Result = nil
		resp.Error = toErrorBody(err)
		s.logger.Debugf("%s #%d failed: %v", req.Method, req.ID, err)
	}
	if err := c.write(resp); err != nil {
		s.logger.Debugf("write %s #%d: %v", req.Method, req.ID, err)
	}
}

func (s *server) handle(ctx context.Context, req Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Criticalf("%s panicked: %v", req.Method, r)
			err = status.Errorf(status.Internal, "%s panicked: %v", req.Method, r)
		}
	}()
	return s.handler.Handle(ctx, req.Method, req.Params)
}
