package fs

import (
	"os"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
)

// FileLock is an exclusive advisory lock held on a file. It serializes
// writers across processes; it does not protect against writers that do not
// take the lock.
type FileLock struct {
	f *os.File
}

// Lock blocks until it holds an exclusive lock on filename. The file is
// created if it does not exist and is never removed.
func Lock(filename string) (*FileLock, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "lock %v", filename)
	}

	debug.Log("acquired lock %v", filename)
	return &FileLock{f: f}, nil
}

// Unlock releases the lock. Calling Unlock on a released lock is a no-op.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}

	err := unlockFile(l.f)
	cerr := l.f.Close()
	debug.Log("released lock %v", l.f.Name())
	l.f = nil

	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(cerr)
}
