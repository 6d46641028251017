package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"github.com/oggyb/devconnect/internal/auth"
	svcErr "github.com/oggyb/devconnect/internal/errors"
)

const namespace = "/"

// SocketServer adapts go-socket.io to the Hub and broadcasts to local sessions.
type SocketServer struct {
	srv  *socketio.Server
	auth *auth.Authenticator
	log  *slog.Logger
}

// NewSocketServer builds the socket.io server. origins limits cross-origin
// handshakes; an empty list or "*" allows any origin.
func NewSocketServer(a *auth.Authenticator, origins []string, log *slog.Logger) *SocketServer {
	check := originChecker(origins)
	srv := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&polling.Transport{CheckOrigin: check},
			&websocket.Transport{CheckOrigin: check},
		},
	})
	return &SocketServer{srv: srv, auth: a, log: log.With("component", "socketio")}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Bind routes connection lifecycle and inbound events to h.
func (s *SocketServer) Bind(h *Hub) {
	s.srv.OnConnect(namespace, func(c socketio.Conn) error {
		id, err := s.authenticate(c)
		if err != nil {
			s.log.Warn("socket handshake rejected", "session", c.ID(), "err", err)
			c.Emit(EventError, errorOf(err, nil))
			return err
		}
		c.SetContext(id)
		h.Connect(context.Background(), c, id)
		return nil
	})

	for _, event := range InboundEvents {
		s.srv.OnEvent(namespace, event, func(c socketio.Conn, raw json.RawMessage) {
			id, ok := c.Context().(auth.Identity)
			if !ok {
				c.Emit(EventError, errorOf(svcErr.Unauthenticated("Authentication error"), nil))
				return
			}
			h.Dispatch(context.Background(), c, id, event, raw)
		})
	}

	s.srv.OnError(namespace, func(c socketio.Conn, err error) {
		if c == nil {
			s.log.Warn("socket error", "err", err)
			return
		}
		s.log.Warn("socket error", "session", c.ID(), "err", err)
	})

	s.srv.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		id, ok := c.Context().(auth.Identity)
		if !ok {
			return
		}
		h.Disconnect(context.Background(), c, id, reason)
	})
}

// authenticate re-checks the handshake token and binds the identity. The HTTP
// guard already rejected anonymous handshakes; this resolves who is talking.
func (s *SocketServer) authenticate(c socketio.Conn) (auth.Identity, error) {
	u := c.URL()
	r := &http.Request{Header: c.RemoteHeader(), URL: &u}
	return s.auth.Authenticate(context.Background(), auth.TokenFromRequest(r))
}

// Serve runs the socket.io event loop until Close.
func (s *SocketServer) Serve() error { return s.srv.Serve() }

func (s *SocketServer) Close() error { return s.srv.Close() }

func (s *SocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srv.ServeHTTP(w, r)
}

func (s *SocketServer) ToRoom(_ context.Context, room, event string, payload any) error {
	s.srv.BroadcastToRoom(namespace, room, event, payload)
	return nil
}

func (s *SocketServer) ToAll(_ context.Context, event string, payload any) error {
	s.srv.BroadcastToNamespace(namespace, event, payload)
	return nil
}
