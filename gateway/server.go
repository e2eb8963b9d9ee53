package gateway

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tessera-labs/go-tessera/config"
)

// Server owns the wire listener and dispatches each accepted connection
// to its own handler goroutine. Connections are isolated: a slow or
// failing peer affects only its own loop.
type Server struct {
	cfg    config.GatewayConfig
	pctx   *PeerContext
	router *Router

	ln      net.Listener
	limiter *rate.Limiter
	sem     chan struct{}

	quit chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	conns   map[net.Conn]struct{}
}

// NewServer creates a gateway server over the shared peer context.
func NewServer(cfg config.GatewayConfig, pctx *PeerContext) *Server {
	return &Server{
		cfg:     cfg,
		pctx:    pctx,
		router:  NewRouter(pctx),
		limiter: rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst),
		sem:     make(chan struct{}, cfg.MaxConns),
		quit:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections. A bind
// failure is the only fatal startup error the gateway surfaces.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("gateway already started")
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind gateway listener on %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop()

	log.Infow("gateway listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener, severs open connections, and waits for
// their handlers. Idle peers must not be able to hold shutdown open.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.quit)
	err := s.ln.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// trackConn registers a live connection, refusing it when shutdown has
// begun so Stop cannot miss a conn accepted during the race.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) forgetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			log.Warnw("accept failed", "cause", err)
			continue
		}

		if !s.limiter.Allow() {
			log.Warnw("connection rejected by rate limit", "remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}

		// Bounded concurrency: block the accept loop until a handler
		// slot frees up rather than growing without limit.
		select {
		case s.sem <- struct{}{}:
		case <-s.quit:
			conn.Close()
			return
		}

		if !s.trackConn(conn) {
			conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.forgetConn(conn)
			s.handleConn(conn)
		}()
	}
}

// handleConn runs one connection's request loop: read a framed request,
// route it, write the response, until the stream closes or errors.
// Panics are contained here so one connection cannot take down the
// node.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic in connection handler", "remote", remote, "panic", r)
		}
	}()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		req, err := ReadRequest(reader, s.cfg.MaxFrameBytes)
		if err != nil {
			if err != io.EOF {
				log.Debugw("connection read failed", "remote", remote, "cause", err)
			}
			return
		}

		resp, err := s.router.Route(req)
		if err != nil {
			// Contract violations and closed outboxes abort the
			// connection; the former is a configuration bug, the
			// latter means a downstream pipeline is gone.
			if IsContractViolation(err) {
				log.Errorw("route contract violation", "remote", remote, "path", req.Path)
			} else if errors.Is(err, ErrOutboxClosed) {
				log.Errorw("outbox closed, dropping connection", "remote", remote, "path", req.Path, "cause", err)
			} else {
				log.Errorw("routing failed", "remote", remote, "cause", err)
			}
			return
		}

		if _, err := writer.Write(resp); err != nil {
			log.Debugw("connection write failed", "remote", remote, "cause", err)
			return
		}
		if err := writer.Flush(); err != nil {
			log.Debugw("connection flush failed", "remote", remote, "cause", err)
			return
		}
	}
}
