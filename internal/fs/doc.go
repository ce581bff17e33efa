// Package fs contains the file system primitives shared by the repository
// and the local backend: crash-safe file replacement and advisory locks.
package fs
