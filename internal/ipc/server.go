package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/errors"
)

// Executor runs one request document against the external system.
// The broker satisfies this.
type Executor interface {
	Execute(ctx context.Context, operation, document string) (string, error)
}

// Server is the broker's listener loop. Exactly one server binds a given
// socket path; a second launch attempt gets E_BROKER_RUNNING and should act
// as a pure client.
type Server struct {
	exec   Executor
	logger zerolog.Logger

	// IdleTimeout, when > 0, shuts the server down after that long with no
	// client activity (calls or heartbeats). Zero disables idle shutdown.
	IdleTimeout time.Duration

	listener net.Listener

	mu           sync.Mutex
	lastActivity time.Time
	conns        map[net.Conn]struct{}

	shutdown  chan struct{}
	closeOnce sync.Once
}

// NewServer creates a server that dispatches execute requests to exec.
func NewServer(exec Executor, logger zerolog.Logger) *Server {
	return &Server{
		exec:     exec,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
		shutdown: make(chan struct{}),
	}
}

// Listen binds the unix socket at path. A live broker on the same path
// yields E_BROKER_RUNNING; a stale socket file left by a dead broker is
// removed and the bind retried.
func (s *Server) Listen(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.EInternal, "failed to create socket dir", err)
	}

	ln, err := net.Listen("unix", path)
	if err == nil {
		s.listener = ln
		return nil
	}

	// Bound already. If something answers, a broker owns the endpoint.
	if conn, derr := net.DialTimeout("unix", path, time.Second); derr == nil {
		_ = conn.Close()
		return errors.NewWithDetails(errors.EBrokerRunning,
			"another broker instance is already listening", map[string]string{"socket": path})
	}

	// Nothing answers: stale socket file from a dead broker.
	if rerr := os.Remove(path); rerr != nil {
		return errors.Wrap(errors.EInternal, "failed to remove stale socket", rerr)
	}
	ln, err = net.Listen("unix", path)
	if err != nil {
		return errors.Wrap(errors.EInternal, "failed to bind socket", err)
	}
	s.listener = ln
	return nil
}

// Serve accepts client connections until Close is called, the idle timeout
// elapses, or a shutdown request arrives. Blocks.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New(errors.EInternal, "Serve called before Listen")
	}
	s.touch()

	if s.IdleTimeout > 0 {
		go s.idleWatch()
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				return errors.Wrap(errors.EInternal, "accept failed", err)
			}
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

// Close stops the listener and disconnects all clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
	})
}

// Done is closed when the server begins shutting down.
func (s *Server) Done() <-chan struct{} {
	return s.shutdown
}

func (s *Server) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Server) idleWatch() {
	ticker := time.NewTicker(s.IdleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastActivity)
			active := len(s.conns)
			s.mu.Unlock()
			if active == 0 && idle >= s.IdleTimeout {
				s.logger.Info().Dur("idle", idle).Msg("no client activity, shutting down")
				s.Close()
				return
			}
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	// Responses from concurrent executes share one connection; writes are
	// serialized through writeMu.
	var writeMu sync.Mutex
	enc := json.NewEncoder(conn)
	respond := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug().Err(err).Msg("client went away before response")
		}
	}

	dec := json.NewDecoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return // client disconnected or sent garbage; drop the connection
		}
		s.touch()

		switch req.Operation {
		case OpHeartbeat:
			respond(Response{CorrelationID: req.CorrelationID, OK: true})

		case OpShutdown:
			respond(Response{CorrelationID: req.CorrelationID, OK: true})
			s.logger.Info().Msg("shutdown requested by client")
			s.Close()
			return

		case OpExecute:
			var payload ExecutePayload
			if err := json.Unmarshal(req.Payload, &payload); err != nil {
				respond(errorResponse(req.CorrelationID,
					errors.New(errors.EParse, "malformed execute payload: "+err.Error())))
				continue
			}
			// Serialization happens in the broker, not here: decoding the
			// next request while this one executes keeps heartbeats flowing.
			go func(req Request, payload ExecutePayload) {
				doc, err := s.exec.Execute(context.Background(), payload.Operation, payload.Document)
				if err != nil {
					respond(errorResponse(req.CorrelationID, err))
					return
				}
				result, merr := json.Marshal(ExecuteResult{Document: doc})
				if merr != nil {
					respond(errorResponse(req.CorrelationID,
						errors.Wrap(errors.EInternal, "failed to encode result", merr)))
					return
				}
				respond(Response{CorrelationID: req.CorrelationID, OK: true, Result: result})
			}(req, payload)

		default:
			respond(errorResponse(req.CorrelationID,
				errors.Newf(errors.EParse, "unknown operation %q", req.Operation)))
		}
	}
}

func errorResponse(correlationID string, err error) Response {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.EInternal
	}
	return Response{
		CorrelationID: correlationID,
		OK:            false,
		ErrorCode:     string(code),
		ErrorMessage:  err.Error(),
	}
}
