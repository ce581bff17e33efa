// Package filechunker splits files into content-defined chunks.
//
// Cut points are found with a rolling Rabin fingerprint over a 64 byte
// window (github.com/restic/chunker). Boundaries only depend on the content
// and the chunker parameters, so splitting the same bytes twice yields the
// same chunks, and a local edit only moves the boundaries close to it.
//
// The whole source is held in memory while it is split: memory use is
// proportional to the file size. This is fine for files of a few hundred
// megabytes but does not scale to arbitrarily large sources.
package filechunker
