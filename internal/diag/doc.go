// Package diag implements the diagnostics capture subsystem: a bounded
// ring buffer for structured log events, a panic recorder with durable
// best-effort spill, and a single-slot synchronous forwarder for hosts that
// want log events pushed instead of polled.
//
// Everything in this package is written to survive the process it is
// diagnosing: capture paths swallow their own failures, tolerate
// unavailable locks, and never panic.
package diag
