package fs

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
)

var tempFile = os.CreateTemp // Overridden by test.

// WriteFileAtomic replaces the file filename with data. The data is written
// to a temporary file in the same directory, synced and then renamed over
// filename, so readers observe either the old or the new content, never a
// partial file. The directory is created if it does not exist.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmp, syncNotSup, err := writeTemp(filename, data, perm)
	if err != nil {
		return err
	}

	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return errors.WithStack(err)
	}

	// Now sync the directory to commit the Rename.
	if !syncNotSup {
		if err := fsyncDir(dir); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

// CreateFileExclusive creates filename with data unless it already exists.
// The complete file is hard linked into place, so filename never exists with
// partial content. It returns false if filename was already present.
func CreateFileExclusive(filename string, data []byte, perm os.FileMode) (created bool, err error) {
	dir := filepath.Dir(filename)

	tmp, syncNotSup, err := writeTemp(filename, data, perm)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = os.Remove(tmp)
	}()

	err = os.Link(tmp, filename)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithStack(err)
	}

	if !syncNotSup {
		if err := fsyncDir(dir); err != nil {
			return true, errors.WithStack(err)
		}
	}

	return true, nil
}

// writeTemp writes data to a synced temporary file next to filename and
// returns its name. syncNotSup is set if the filesystem does not support
// fsync.
func writeTemp(filename string, data []byte, perm os.FileMode) (name string, syncNotSup bool, err error) {
	dir := filepath.Dir(filename)

	// Create new file with a temporary name.
	tmpname := filepath.Base(filename) + "-tmp-"
	f, err := tempFile(dir, tmpname)

	if errors.Is(err, os.ErrNotExist) {
		debug.Log("error %v: creating dir", err)

		// error is caused by a missing directory, try to create it
		mkdirErr := os.MkdirAll(dir, 0700)
		if mkdirErr != nil {
			debug.Log("error creating dir %v: %v", dir, mkdirErr)
		} else {
			// try again
			f, err = tempFile(dir, tmpname)
		}
	}

	if err != nil {
		return "", false, errors.WithStack(err)
	}

	defer func(f *os.File) {
		if err != nil {
			_ = f.Close() // Double Close is harmless.
			// the temporary name embeds the final name, nobody else will
			// pick it up
			_ = os.Remove(f.Name())
		}
	}(f)

	n, err := f.Write(data)
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	// sanity check
	if n != len(data) {
		err = errors.Errorf("wrote %d bytes instead of the expected %d bytes", n, len(data))
		return "", false, err
	}

	// Ignore error if filesystem does not support fsync.
	err = f.Sync()
	syncNotSup = err != nil && (errors.Is(err, syscall.ENOTSUP) || isMacENOTTY(err))
	if err != nil && !syncNotSup {
		return "", false, errors.WithStack(err)
	}

	if err = f.Chmod(perm); err != nil && !os.IsPermission(err) {
		return "", false, errors.WithStack(err)
	}

	// Close before rename or link. Windows doesn't like the reverse order.
	if err = f.Close(); err != nil {
		return "", false, errors.WithStack(err)
	}

	return f.Name(), syncNotSup, nil
}

// IsNoSpace reports whether err was caused by a full disk.
func IsNoSpace(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
