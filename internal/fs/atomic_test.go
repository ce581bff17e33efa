package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/backy/backy/internal/errors"
	rtest "github.com/backy/backy/internal/test"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := rtest.TempDir(t)
	filename := filepath.Join(dir, "sub", "dir", "index.json")

	rtest.OK(t, WriteFileAtomic(filename, []byte("[]"), 0600))
	data, err := os.ReadFile(filename)
	rtest.OK(t, err)
	rtest.Equals(t, "[]", string(data))

	// replace existing content
	rtest.OK(t, WriteFileAtomic(filename, []byte("[1]"), 0600))
	data, err = os.ReadFile(filename)
	rtest.OK(t, err)
	rtest.Equals(t, "[1]", string(data))

	// no temporary files are left behind
	entries, err := os.ReadDir(filepath.Dir(filename))
	rtest.OK(t, err)
	rtest.Equals(t, 1, len(entries))
}

func TestCreateFileExclusive(t *testing.T) {
	dir := rtest.TempDir(t)
	filename := filepath.Join(dir, "index.json")

	created, err := CreateFileExclusive(filename, []byte("[]"), 0600)
	rtest.OK(t, err)
	rtest.Assert(t, created, "file was not created")

	// an existing file is never replaced
	created, err = CreateFileExclusive(filename, []byte("[1]"), 0600)
	rtest.OK(t, err)
	rtest.Assert(t, !created, "existing file was replaced")

	data, err := os.ReadFile(filename)
	rtest.OK(t, err)
	rtest.Equals(t, "[]", string(data))

	entries, err := os.ReadDir(dir)
	rtest.OK(t, err)
	rtest.Equals(t, 1, len(entries))
}

func TestCreateFileExclusiveNoSpace(t *testing.T) {
	oldTempFile := tempFile
	defer func() {
		tempFile = oldTempFile
	}()

	tempFile = func(_, _ string) (*os.File, error) {
		return nil, fmt.Errorf("not creating tempfile, %w", syscall.ENOSPC)
	}

	filename := filepath.Join(rtest.TempDir(t), "index.json")
	_, err := CreateFileExclusive(filename, []byte("[]"), 0600)
	rtest.Assert(t, IsNoSpace(err), "could not recover original ENOSPC error from %v", err)

	// no empty file is left in place
	_, err = os.Stat(filename)
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "index exists after failed create: %v", err)
}

func TestWriteFileAtomicNoSpace(t *testing.T) {
	oldTempFile := tempFile
	defer func() {
		tempFile = oldTempFile
	}()

	tempFile = func(_, _ string) (*os.File, error) {
		return nil, fmt.Errorf("not creating tempfile, %w", syscall.ENOSPC)
	}

	dir := rtest.TempDir(t)
	filename := filepath.Join(dir, "blob")
	rtest.OK(t, os.WriteFile(filename, []byte("old"), 0600))

	err := WriteFileAtomic(filename, []byte("new"), 0600)
	rtest.Assert(t, err != nil, "expected error")
	rtest.Assert(t, IsNoSpace(err), "could not recover original ENOSPC error from %v", err)

	// the old content is untouched
	data, err := os.ReadFile(filename)
	rtest.OK(t, err)
	rtest.Equals(t, "old", string(data))
}
