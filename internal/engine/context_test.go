package engine

import (
	"context"
	"testing"
	"time"
)

func newReadyDurableNode(t *testing.T) *Node {
	t.Helper()
	n := NewDurable(newTestStorage(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.System().WaitLoaded(ctx); err != nil {
		t.Fatalf("wait loaded: %v", err)
	}
	if _, ok := n.System().Root(); !ok {
		if err := n.System().Create(ctx); err != nil {
			t.Fatalf("create root: %v", err)
		}
	}
	if err := n.System().WaitReady(ctx); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	return n
}

func TestTransactionFetchRoundTrip(t *testing.T) {
	n := newReadyDurableNode(t)
	c, err := n.Context(PolicyDefault)
	if err != nil {
		t.Fatalf("context: %v", err)
	}

	trx := c.Begin()
	if _, err := trx.Create("room", map[string]interface{}{"name": "General"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := trx.Create("room", map[string]interface{}{"name": "Scroll Test"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := trx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	rooms, err := c.Fetch(context.Background(), "room", `fields.name == 'General'`)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rooms) != 1 || rooms[0].StringField("name") != "General" {
		t.Fatalf("fetched %v", rooms)
	}

	all, err := c.Fetch(context.Background(), "room", "")
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("fetched %d rooms", len(all))
	}
}

func TestUncommittedInvisible(t *testing.T) {
	n := newReadyDurableNode(t)
	c, _ := n.Context(PolicyDefault)

	trx := c.Begin()
	if _, err := trx.Create("user", map[string]interface{}{"display_name": "SeedBot"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	users, err := c.Fetch(context.Background(), "user", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("uncommitted entity visible: %v", users)
	}

	if err := trx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := trx.Commit(context.Background()); err == nil {
		t.Fatalf("double commit should fail")
	}
	if _, err := trx.Create("user", nil); err == nil {
		t.Fatalf("create after commit should fail")
	}
}

func TestFetchBadQuery(t *testing.T) {
	n := newReadyDurableNode(t)
	c, _ := n.Context(PolicyDefault)

	if _, err := c.Fetch(context.Background(), "room", "fields.name =="); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := c.Fetch(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty collection")
	}
}

func TestFilterErrorExcludesEntity(t *testing.T) {
	f, err := compileFilter(`fields.timestamp > 100`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// entity without the field is excluded, not an error
	if f.Eval(Entity{ID: "x", Collection: "msg", Fields: map[string]interface{}{"text": "hi"}}) {
		t.Fatalf("entity without field matched")
	}
	if !f.Eval(Entity{ID: "y", Collection: "msg", Fields: map[string]interface{}{"timestamp": 200}}) {
		t.Fatalf("matching entity excluded")
	}
}

func TestUnknownPolicy(t *testing.T) {
	n := newReadyDurableNode(t)
	if _, err := n.Context(Policy("root")); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
