// Package repository implements the blob store: an ordered JSON index of
// saved blobs plus one file per blob, below a per-user data directory.
//
// The repository keeps no state in memory between calls. Every operation
// re-reads index.json, so several Repository values (or processes) can
// share one directory. Updates to the index are serialized by a mutex per
// directory and an advisory lock on index.lock, and index.json is always
// replaced atomically.
package repository
