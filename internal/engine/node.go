package engine

import (
	"sync"

	"github.com/google/uuid"
)

// Node is the long-lived synchronization endpoint. It owns the storage
// resource and, for ephemeral nodes, the sync connection. A process holds
// at most one Node, shared by reference across all callers.
type Node struct {
	ID      string
	durable bool

	storage *Storage
	system  *System

	mu     sync.Mutex
	client *Client
}

// New constructs an ephemeral node: its root arrives from a remote peer
// via a Client, and the node is not ready until that handshake completes.
func New(storage *Storage) *Node {
	return &Node{
		ID:      uuid.NewString(),
		storage: storage,
		system:  newSystem(storage),
	}
}

// NewDurable constructs a durable node and begins loading any persisted
// root in the background. Use System().WaitLoaded to observe completion.
func NewDurable(storage *Storage) *Node {
	n := &Node{
		ID:      uuid.NewString(),
		durable: true,
		storage: storage,
		system:  newSystem(storage),
	}
	go n.system.load()
	return n
}

// Durable reports whether the node persists its own authoritative root.
func (n *Node) Durable() bool { return n.durable }

// System returns the node's root state tracker.
func (n *Node) System() *System { return n.system }

// Storage returns the node's local store.
func (n *Node) Storage() *Storage { return n.storage }

// Context returns an operation handle bound to the given access policy.
func (n *Node) Context(policy Policy) (*Context, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return &Context{node: n, policy: policy}, nil
}

func (n *Node) setClient(c *Client) {
	n.mu.Lock()
	n.client = c
	n.mu.Unlock()
}

// Close releases the sync connection (if any) and the storage resource.
func (n *Node) Close() error {
	n.mu.Lock()
	client := n.client
	n.client = nil
	n.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}
	return n.storage.Close()
}
