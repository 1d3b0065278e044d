// Package bridge exposes the embeddable boundary surface of a Tether
// process: one Bridge per process owns the background scheduler, the
// long-lived sync node, and the diagnostics subsystem, and hands the host
// a small set of operations that are safe to call from any goroutine at
// any time.
//
// Lifecycle:
//
//	b := bridge.New(cfg)            // or bridge.Default()
//	_ = b.InitRuntime()             // idempotent scheduler bring-up
//	b.InitLogging()                 // idempotent, installs the log buffer
//	err := b.InitNode(ctx, "")      // "" = durable standalone node
//	cctx, err := b.Context()        // fetch/transaction handle
//
// Node initialization is idempotent and race-safe: exactly one caller
// performs bring-up, and every concurrent caller observes the same
// terminal outcome. Ready and Failed are terminal for the process.
package bridge
