package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Policy names an access policy for operations issued through a Context.
// Only the permissive process-default policy exists in this design.
type Policy string

// PolicyDefault is the process-default permissive policy.
const PolicyDefault Policy = "permissive"

func (p Policy) validate() error {
	if p != PolicyDefault {
		return fmt.Errorf("engine: unknown policy %q", p)
	}
	return nil
}

// Context is an operation handle bound to a node and an access policy.
type Context struct {
	node   *Node
	policy Policy
}

// Policy returns the context's access policy.
func (c *Context) Policy() Policy { return c.policy }

// Fetch returns the entities of a collection matching a CEL predicate over
// `id`, `collection`, `fields`, and `now_ms`. An empty query matches
// everything. Results arrive in creation order.
func (c *Context) Fetch(ctx context.Context, collection, query string) ([]Entity, error) {
	if collection == "" {
		return nil, errors.New("engine: empty collection")
	}
	f, err := compileFilter(query)
	if err != nil {
		return nil, fmt.Errorf("engine: bad query: %w", err)
	}

	var out []Entity
	scanErr := c.node.storage.ScanCollection(collection, func(e Entity) bool {
		if ctx.Err() != nil {
			return false
		}
		if f.Eval(e) {
			out = append(out, e)
		}
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Begin starts a transaction. Created entities become visible only after
// Commit, which writes them in one atomic batch.
func (c *Context) Begin() *Transaction {
	return &Transaction{ctx: c}
}

// Transaction accumulates entity creations for a single atomic commit.
type Transaction struct {
	ctx *Context

	mu      sync.Mutex
	pending []Entity
	done    bool
}

// Create stages a new entity in the given collection and returns it with
// its assigned ID.
func (t *Transaction) Create(collection string, fields map[string]interface{}) (Entity, error) {
	if collection == "" {
		return Entity{}, errors.New("engine: empty collection")
	}
	e := Entity{
		ID:         t.ctx.node.storage.NewID(),
		Collection: collection,
		Fields:     fields,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return Entity{}, errors.New("engine: transaction already committed")
	}
	t.pending = append(t.pending, e)
	return e, nil
}

// Commit writes every staged entity atomically. A transaction commits at
// most once.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return errors.New("engine: transaction already committed")
	}
	t.done = true
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	return t.ctx.node.storage.PutEntities(pending)
}
