package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/pkg/events"
	"github.com/standardbeagle/relink/pkg/ports"
)

// Server exposes the panel protocol over a websocket endpoint. Many
// panels may connect; they all share one engine, so scan commands from
// any of them still honor the single-session rule.
type Server struct {
	svc      *Service
	bus      *events.Bus
	log      hclog.Logger
	host     string
	port     int
	router   *mux.Router
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	clients map[string]*panelClient
}

// panelClient is one connected websocket panel. Outbound messages go
// through a buffered channel drained by a dedicated writer; done is
// closed when the connection ends so stragglers drop instead of
// sending on a dead client.
type panelClient struct {
	id   string
	conn *websocket.Conn
	out  chan Response
	done chan struct{}
}

func NewServer(svc *Service, bus *events.Bus, host string, port int, log hclog.Logger) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	s := &Server{
		svc:    svc,
		bus:    bus,
		log:    log,
		host:   host,
		port:   port,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the panel runs from an embedded webview, not a fixed origin
			},
		},
		clients: make(map[string]*panelClient),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/panel", s.handlePanel).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
}

// Router exposes the HTTP handler for tests and embedding servers.
func (s *Server) Router() http.Handler { return s.router }

// Port returns the port actually being served, which may differ from
// the configured one when it was taken.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Start binds the listener and serves in the background until Stop is
// called. When the configured port is taken, a nearby free one is used
// instead; Port reports the bound port once Start returns. Bind
// failures come back from Start itself, later serve failures are
// logged.
func (s *Server) Start() error {
	port := s.port
	if port != 0 {
		p, err := ports.FindAvailablePort(port)
		if err != nil {
			return fmt.Errorf("find available port: %w", err)
		}
		if p != port {
			s.log.Warn("configured port unavailable, using fallback", "configured", port, "port", p)
		}
		port = p
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.server = &http.Server{Handler: s.router}
	s.mu.Unlock()

	s.log.Info("panel server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("panel server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	clients := len(s.clients)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"scanActive": s.svc.ScanActive(),
		"clients":    clients,
	})
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &panelClient{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan Response, 64),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	s.log.Info("panel client connected", "client", c.id, "remote", conn.RemoteAddr().String())
	s.publishClient(events.ClientConnected, c.id)

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)

	close(c.done)
	conn.Close()
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	s.log.Info("panel client disconnected", "client", c.id)
	s.publishClient(events.ClientDisconnected, c.id)
}

// readLoop decodes commands off the wire until the connection dies. A
// malformed payload gets an error response but keeps the connection.
func (s *Server) readLoop(ctx context.Context, c *panelClient) {
	send := func(resp Response) { s.sendTo(c, resp) }
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("panel read failed", "client", c.id, "error", err)
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendTo(c, errorResponse("malformed command: "+err.Error()))
			continue
		}
		s.svc.Dispatch(ctx, cmd, send)
	}
}

func (s *Server) writeLoop(c *panelClient) {
	for {
		select {
		case <-c.done:
			return
		case resp := <-c.out:
			if err := c.conn.WriteJSON(resp); err != nil {
				s.log.Debug("panel write failed", "client", c.id, "error", err)
				return
			}
		}
	}
}

// sendTo queues a response for one client, dropping it when the client
// is congested or already gone. Losing a message to a slow panel beats
// stalling the scan loop.
func (s *Server) sendTo(c *panelClient, resp Response) {
	select {
	case <-c.done:
	case c.out <- resp:
	default:
		s.log.Warn("dropping response for congested panel client", "client", c.id, "type", resp.Type)
	}
}

func (s *Server) publishClient(eventType events.EventType, clientID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type: eventType,
		Data: map[string]interface{}{"client": clientID},
	})
}
