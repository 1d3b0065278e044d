// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// a durable tether node that serves the sync handshake to ephemeral peers,
// handling lifecycle and shutdown. It also seeds a small demo dataset so a
// fresh server has something for clients to fetch.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", ListenAddr: ":9898", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
