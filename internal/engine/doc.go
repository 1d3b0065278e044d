// Package engine is the synchronization endpoint the bridge brings up and
// hands out contexts for. The bridge only depends on the small operation
// set exposed here: open storage, construct a durable or ephemeral node,
// wait until the root is loaded or synchronized, and issue transactions
// and fetches through a Context.
//
// A durable node owns its authoritative root locally; an ephemeral node
// adopts its root from a remote peer over the sync connection and is not
// usable until that handshake completes.
package engine
