package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/rzbill/tether/internal/config"
	"github.com/rzbill/tether/internal/engine"
	"github.com/rzbill/tether/pkg/bridge"
	logpkg "github.com/rzbill/tether/pkg/log"
)

// Demo dataset served to connecting clients. Timestamps are synthetic so
// repeated runs produce the same conversation.
const (
	seedRoomGeneral  = "General"
	seedRoomScroll   = "Scroll Test"
	seedUserName     = "SeedBot"
	seedTimestampMs  = int64(1700000000000)
	seedIntervalMs   = int64(1000)
	DefaultSeedCount = 100
)

type Options struct {
	DataDir    string
	ListenAddr string
	SeedCount  int
	Config     cfgpkg.Config
}

// Run starts a durable node, seeds the demo dataset, and serves the sync
// handshake until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context. We layer
	// a local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.SeedCount <= 0 {
		opts.SeedCount = DefaultSeedCount
	}

	b := bridge.New(cfg)
	defer b.Close()
	b.InitLogging()
	if err := b.InitRuntime(); err != nil {
		return err
	}
	if err := b.InitNode(sctx, ""); err != nil {
		return err
	}
	node, err := b.Node()
	if err != nil {
		return err
	}

	logger := b.Logger()
	root, _ := node.System().Root()
	logger.Info("starting tether server",
		logpkg.Str("listen", opts.ListenAddr),
		logpkg.Str("node", node.ID),
		logpkg.Str("root", root),
		logpkg.Str("data_dir", cfg.DataDir),
	)

	c, err := b.Context()
	if err != nil {
		return err
	}
	if err := seed(sctx, c, logger, opts.SeedCount); err != nil {
		return err
	}

	srv := engine.NewServer(node)
	return srv.ListenAndServe(sctx, opts.ListenAddr)
}

// seed idempotently creates the demo rooms, user, and message history. A
// partially seeded store is topped up rather than duplicated.
func seed(ctx context.Context, c *engine.Context, logger logpkg.Logger, count int) error {
	if _, err := ensureOne(ctx, c, "rooms", "name", seedRoomGeneral, nil); err != nil {
		return err
	}
	scrollRoom, err := ensureOne(ctx, c, "rooms", "name", seedRoomScroll, nil)
	if err != nil {
		return err
	}
	user, err := ensureOne(ctx, c, "users", "name", seedUserName, nil)
	if err != nil {
		return err
	}

	existing, err := c.Fetch(ctx, "messages", fmt.Sprintf("fields.room == '%s'", scrollRoom.ID))
	if err != nil {
		return err
	}
	if len(existing) >= count {
		logger.Info("demo data already seeded", logpkg.Int("messages", len(existing)))
		return nil
	}

	trx := c.Begin()
	for i := len(existing); i < count; i++ {
		_, err := trx.Create("messages", map[string]interface{}{
			"room":      scrollRoom.ID,
			"user":      user.ID,
			"text":      fmt.Sprintf("Message %d", i),
			"timestamp": seedTimestampMs + int64(i)*seedIntervalMs,
		})
		if err != nil {
			return err
		}
	}
	if err := trx.Commit(ctx); err != nil {
		return err
	}
	logger.Info("demo data seeded",
		logpkg.Str("room", seedRoomScroll),
		logpkg.Int("messages", count-len(existing)),
	)
	return nil
}

// ensureOne returns the entity in collection whose field equals value,
// creating it when missing.
func ensureOne(ctx context.Context, c *engine.Context, collection, field, value string, extra map[string]interface{}) (engine.Entity, error) {
	got, err := c.Fetch(ctx, collection, fmt.Sprintf("fields.%s == '%s'", field, value))
	if err != nil {
		return engine.Entity{}, err
	}
	if len(got) > 0 {
		return got[0], nil
	}

	fields := map[string]interface{}{field: value}
	for k, v := range extra {
		fields[k] = v
	}
	trx := c.Begin()
	e, err := trx.Create(collection, fields)
	if err != nil {
		return engine.Entity{}, err
	}
	if err := trx.Commit(ctx); err != nil {
		return engine.Entity{}, err
	}
	return e, nil
}
