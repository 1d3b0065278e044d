package engine

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// Client is the ephemeral node's streaming connection to a remote sync
// endpoint. After the hello/root handshake completes the node's system
// becomes ready; the connection then stays open for the node's lifetime.
type Client struct {
	node *Node
	conn net.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects an ephemeral node to the sync endpoint at addr, sends the
// hello frame, and starts the receive loop. It returns once the connection
// is established; readiness is observed via node.System().WaitReady.
func Dial(ctx context.Context, addr string, node *Node) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(conn, frame{Type: frameHello, NodeID: node.ID}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("engine: handshake send: %w", err)
	}

	c := &Client{node: node, conn: conn, done: make(chan struct{})}
	node.setClient(c)
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		f, err := readFrame(c.conn)
		if err != nil {
			return
		}
		if f.Type == frameRoot {
			// adopting the root signals system-ready; an ephemeral node
			// also persists it so diagnostics can inspect it later
			_ = c.node.system.adoptRoot(f.RootID, true)
		}
	}
}

// Done is closed when the receive loop exits (connection lost or closed).
func (c *Client) Done() <-chan struct{} { return c.done }

// Close tears down the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}
