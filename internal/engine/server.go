package engine

import (
	"context"
	"errors"
	"net"
	"sync"
)

// Server serves the sync handshake from a durable node: each connecting
// ephemeral peer sends hello and receives the authoritative root.
type Server struct {
	node *Node

	mu  sync.Mutex
	lis net.Listener
	wg  sync.WaitGroup
}

// NewServer wraps a durable node. The node must be ready (hold a root)
// before peers can complete their handshake.
func NewServer(node *Node) *Server {
	return &Server{node: node}
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.lis = l
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// Addr returns the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Close stops the listener; in-flight connections drain.
func (s *Server) Close() {
	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()
	if lis != nil {
		_ = lis.Close()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	hello, err := readFrame(conn)
	if err != nil || hello.Type != frameHello {
		return
	}

	if err := s.node.system.WaitReady(ctx); err != nil {
		return
	}
	root, ok := s.node.system.Root()
	if !ok {
		return
	}
	if err := writeFrame(conn, frame{Type: frameRoot, RootID: root}); err != nil {
		return
	}

	// hold the stream open for the peer's lifetime
	for {
		if _, err := readFrame(conn); err != nil {
			return
		}
	}
}
