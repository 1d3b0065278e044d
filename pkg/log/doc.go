// Package log provides Tether's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves the
// formatter/outputs pipeline. Outputs are the seam other subsystems plug
// into: the diagnostics buffer and the host log forwarder are both Outputs
// attached to the process logger.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("bridge"))
//	l.Info("node ready", log.Str("mode", "durable"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// JSON or text formatting. To integrate with libraries expecting a standard
// *log.Logger (Pebble does this), use RedirectStdLog.
package log
