package repository

import (
	"encoding/json"
	"os"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
	"github.com/backy/backy/internal/fs"

	"github.com/google/uuid"
)

// IndexEntry describes one saved blob.
type IndexEntry struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Length   int64     `json:"length"`
}

// ErrCorruptIndex is returned when index.json exists but cannot be parsed.
// The file is left untouched.
var ErrCorruptIndex = errors.New("index is corrupt")

type corruptIndexError struct {
	err error
}

func (e *corruptIndexError) Error() string {
	return ErrCorruptIndex.Error() + ": " + e.err.Error()
}

func (e *corruptIndexError) Is(target error) bool {
	return target == ErrCorruptIndex
}

func (e *corruptIndexError) Unwrap() error {
	return e.err
}

// loadIndex reads and decodes the index file.
func loadIndex(filename string) ([]IndexEntry, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.E(errors.KindIO, "read index", filename, err)
	}

	var entries []IndexEntry
	if err := json.Unmarshal(buf, &entries); err != nil {
		debug.Log("unable to decode index %v: %v", filename, err)
		return nil, errors.E(errors.KindSerialization, "decode index", filename, &corruptIndexError{err: err})
	}

	if entries == nil {
		entries = []IndexEntry{}
	}

	return entries, nil
}

// writeIndex replaces the index file with entries.
func writeIndex(filename string, entries []IndexEntry) error {
	if entries == nil {
		entries = []IndexEntry{}
	}

	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.E(errors.KindSerialization, "encode index", filename, err)
	}

	if err := fs.WriteFileAtomic(filename, buf, fileMode); err != nil {
		return errors.E(errors.KindIO, "write index", filename, err)
	}

	return nil
}
