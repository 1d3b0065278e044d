// Package id provides a 128-bit, lexicographically sortable identifier
// used for entity storage keys.
//
// # Format
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves chronological order, and IDs generated
// within the same millisecond remain strictly increasing by sequence, so
// prefix scans over entity keys return records in creation order.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity: a regressing system
// clock pins to the last seen millisecond, and a sequence overflow within
// one millisecond waits for the next before emitting.
package id
