// Package server owns the listening socket and the server lifecycle. It
// accepts connections, hands each request to the route table, writes the
// rendered response, and drains in-flight connections on shutdown.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/switchboard/internal/config"
	"github.com/conneroisu/switchboard/internal/errors"
	"github.com/conneroisu/switchboard/internal/logging"
	"github.com/conneroisu/switchboard/internal/router"
	"golang.org/x/net/netutil"
)

// Options configures a Server.
type Options struct {
	Config   config.ServerConfig
	Table    *router.Table
	Logger   logging.Logger
	ErrorLog *log.Logger // receives net/http internal errors such as accept failures
}

// Server is the request loop around a fixed route table.
type Server struct {
	cfg       config.ServerConfig
	table     *router.Table
	logger    logging.Logger
	errorLog  *log.Logger
	lifecycle *Lifecycle
	now       func() time.Time

	mu         sync.Mutex // protects listener and httpServer
	listener   net.Listener
	httpServer *http.Server

	connections atomic.Int64

	serveErr  chan error
	serveDone chan struct{}

	drainOnce sync.Once
	drainErr  error
}

// New constructs a Server. It does not bind until Start or Run is called.
func New(opts Options) *Server {
	if opts.Table == nil {
		panic("server.New: route table is nil")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Config.DrainTimeout <= 0 {
		opts.Config.DrainTimeout = config.DefaultDrainTimeout
	}

	return &Server{
		cfg:       opts.Config,
		table:     opts.Table,
		logger:    opts.Logger.WithComponent("server"),
		errorLog:  opts.ErrorLog,
		lifecycle: NewLifecycle(),
		now:       time.Now,
		serveErr:  make(chan error, 1),
		serveDone: make(chan struct{}),
	}
}

// Lifecycle exposes the state machine for observation.
func (s *Server) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// State is shorthand for s.Lifecycle().State().
func (s *Server) State() State {
	return s.lifecycle.State()
}

// Addr returns the bound address, or nil before a successful Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listening socket and begins accepting connections in the
// background. A bind failure moves the lifecycle straight to stopped and is
// returned as a bind error; it is never retried. If ctx is done before the
// socket is bound, the server stops and the context's cause is returned.
func (s *Server) Start(ctx context.Context) error {
	if st := s.lifecycle.State(); st != StateStarting {
		return errors.NewLifecycleError(st, StateListening)
	}

	if ctx.Err() != nil {
		return s.abortStart(ctx)
	}

	addr := s.cfg.Address()
	s.logger.Info(ctx, "starting", "addr", addr)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		// Name resolution fails with "operation was canceled" once ctx is done.
		if ctx.Err() != nil {
			return s.abortStart(ctx)
		}
		bindErr := errors.NewBindError(addr, err)
		s.logger.Error(ctx, bindErr, "bind failed")
		if tErr := s.lifecycle.transition(StateStopped); tErr != nil {
			s.logger.Warn(ctx, tErr, "lifecycle already advanced")
		}
		return bindErr
	}

	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          s.errorLog,
		ConnState:         s.trackConn,
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = httpServer
	s.mu.Unlock()

	// A drain that raced ahead of us has already stopped the lifecycle.
	if err := s.lifecycle.transition(StateListening); err != nil {
		_ = ln.Close()
		return err
	}

	s.logger.Info(ctx, "listening", "addr", ln.Addr().String(), "max_connections", s.cfg.MaxConnections)

	go s.serve(httpServer, ln)
	return nil
}

// abortStart stops a server whose context ended before it could listen.
func (s *Server) abortStart(ctx context.Context) error {
	s.logger.Info(ctx, "stopped", "reason", "cancelled before listening", "cause", describeCause(ctx))
	if err := s.lifecycle.transition(StateStopped); err != nil {
		s.logger.Warn(ctx, err, "lifecycle already advanced")
	}
	return fmt.Errorf("start aborted: %w", context.Cause(ctx))
}

func (s *Server) serve(httpServer *http.Server, ln net.Listener) {
	defer close(s.serveDone)

	if err := httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		s.serveErr <- err
	}
}

// Run starts the server and blocks until ctx is cancelled, the accept loop
// fails, or another caller drains the server. It always leaves the server
// stopped. Cancelling ctx is the normal way to request a graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		if ctx.Err() != nil && !errors.IsBindError(err) {
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "drain requested", "reason", describeCause(ctx))
		return s.Drain(context.WithoutCancel(ctx))
	case err := <-s.serveErr:
		s.logger.Error(ctx, err, "accept loop failed")
		if drainErr := s.Drain(context.WithoutCancel(ctx)); drainErr != nil {
			s.logger.Warn(ctx, drainErr, "drain after accept failure")
		}
		return fmt.Errorf("serving: %w", err)
	case <-s.lifecycle.Stopped():
		return s.Drain(ctx)
	}
}

// Drain stops accepting connections and waits for in-flight ones to finish,
// up to the configured drain timeout. Connections still open when it elapses
// are closed. Drain is idempotent: concurrent and repeated calls wait for the
// first one and share its result.
func (s *Server) Drain(ctx context.Context) error {
	s.drainOnce.Do(func() {
		s.drainErr = s.drain(ctx)
	})
	return s.drainErr
}

func (s *Server) drain(ctx context.Context) error {
	for {
		switch s.lifecycle.State() {
		case StateStarting:
			if s.lifecycle.transition(StateStopped) == nil {
				s.logger.Info(ctx, "stopped", "reason", "drained before listening")
				return nil
			}
		case StateListening:
			if s.lifecycle.transition(StateDraining) == nil {
				return s.shutdown(ctx)
			}
		default:
			// Stopped by a failed bind.
			return nil
		}
	}
}

func (s *Server) shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info(ctx, "draining",
		"connections", s.connections.Load(),
		"timeout", s.cfg.DrainTimeout.String(),
	)

	drainCtx, cancel := context.WithTimeout(ctx, s.cfg.DrainTimeout)
	defer cancel()

	if err := httpServer.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, err, "drain timeout elapsed, closing remaining connections",
			"connections", s.connections.Load(),
		)
		if closeErr := httpServer.Close(); closeErr != nil {
			s.logger.Warn(ctx, closeErr, "closing connections")
		}
	}

	<-s.serveDone

	if err := s.lifecycle.transition(StateStopped); err != nil {
		return err
	}
	s.logger.Info(ctx, "stopped")
	return nil
}

// ServeHTTP dispatches one request through the route table and writes the
// rendered response. Write failures are confined to this connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := router.NewIncomingRequest(r.Method, r.URL.Path, s.now())
	route, resp := s.table.Dispatch(req)

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)

	if _, err := io.WriteString(w, resp.Body); err != nil {
		s.logger.Warn(r.Context(), errors.NewTransportError("write", r.RemoteAddr, err), "response abandoned",
			"request_id", req.ID,
			"path", req.Path,
		)
		return
	}

	s.logger.Debug(r.Context(), "request",
		"request_id", req.ID,
		"method", req.Method,
		"path", req.Path,
		"route", route.Name,
		"status", resp.Status,
		"duration", time.Since(req.ReceivedAt).String(),
	)
}

func (s *Server) trackConn(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.connections.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.connections.Add(-1)
	}
}

func describeCause(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil {
		return cause.Error()
	}
	return "context done"
}
