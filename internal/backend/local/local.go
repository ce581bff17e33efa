// Package local saves blobs and files into a plain directory, without an
// index and without encryption.
package local

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
	bfs "github.com/backy/backy/internal/fs"

	"golang.org/x/sync/errgroup"
)

const (
	blobExtension = ".blob"

	dirMode  = 0700
	fileMode = 0600
)

// validName checks that filename names a file directly inside a directory.
func validName(filename string) error {
	switch {
	case filename == "":
		return errors.New("empty filename")
	case filename == "." || filename == "..":
		return errors.Errorf("invalid filename %q", filename)
	case strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, filepath.Separator):
		return errors.Errorf("filename %q must not contain a path separator", filename)
	}
	return nil
}

// Filename returns filename with ".blob" appended if it has no extension.
// A leading dot does not start an extension, so ".config" becomes
// ".config.blob" while "report.txt" is kept as is.
func Filename(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == filename {
		return filename + blobExtension
	}
	return filename
}

func save(blob []byte, destDir, filename string, perm os.FileMode) (string, error) {
	if err := validName(filename); err != nil {
		return "", err
	}

	dest, err := filepath.Abs(filepath.Join(destDir, Filename(filename)))
	if err != nil {
		return "", errors.E(errors.KindIO, "resolve destination", destDir, err)
	}

	debug.Log("Save %v, %d bytes", dest, len(blob))

	if err := os.MkdirAll(filepath.Dir(dest), dirMode); err != nil {
		return "", errors.E(errors.KindIO, "create directory", filepath.Dir(dest), err)
	}

	if err := bfs.WriteFileAtomic(dest, blob, perm); err != nil {
		return "", errors.E(errors.KindIO, "write file", dest, err)
	}

	return dest, nil
}

// Save writes blob to destDir/filename and returns the absolute path of the
// written file. destDir is created if needed and an existing file is
// replaced.
func Save(blob []byte, destDir, filename string) (string, error) {
	return save(blob, destDir, filename, fileMode)
}

// SaveFile copies the regular file src into destDir, using the same naming
// rule as Save. The permission bits of src are kept.
func SaveFile(src, destDir string) (string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return "", errors.E(errors.KindIO, "stat", src, err)
	}
	if !fi.Mode().IsRegular() {
		return "", errors.E(errors.KindIO, "save file", src, errors.New("not a regular file"))
	}

	return copyFile(src, destDir, fi.Mode().Perm())
}

func copyFile(src, destDir string, perm os.FileMode) (string, error) {
	buf, err := os.ReadFile(src)
	if err != nil {
		return "", errors.E(errors.KindIO, "read file", src, err)
	}

	return save(buf, destDir, filepath.Base(src), perm)
}

// Mirror copies src into destDir. A file is copied like SaveFile, a
// directory is recreated with its complete tree below destDir/<name of
// src>. Files are copied concurrently, at most cfg.Connections at a time.
// Entries that are neither regular files nor directories are skipped.
// The absolute path of the copy is returned.
func Mirror(ctx context.Context, cfg Config, src, destDir string) (string, error) {
	if cfg.Connections == 0 {
		return "", errors.E(errors.KindConfig, "mirror", "", errors.New("connections must be a positive number"))
	}

	fi, err := os.Stat(src)
	if err != nil {
		return "", errors.E(errors.KindIO, "stat", src, err)
	}

	switch {
	case fi.Mode().IsRegular():
		return SaveFile(src, destDir)
	case fi.IsDir():
	default:
		return "", errors.E(errors.KindIO, "mirror", src, errors.New("neither a file nor a directory"))
	}

	root, err := filepath.Abs(filepath.Join(destDir, filepath.Base(filepath.Clean(src))))
	if err != nil {
		return "", errors.E(errors.KindIO, "resolve destination", destDir, err)
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return "", errors.E(errors.KindIO, "resolve source", src, err)
	}
	if within(absSrc, root) {
		return "", errors.E(errors.KindConfig, "mirror", src,
			errors.Errorf("destination %v is inside the source directory", root))
	}

	debug.Log("mirror %v to %v with %d connections", src, root, cfg.Connections)

	wg, ctx := errgroup.WithContext(ctx)
	wg.SetLimit(int(cfg.Connections))

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.E(errors.KindIO, "walk", path, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.E(errors.KindIO, "walk", path, err)
		}
		target := filepath.Join(root, rel)

		if d.IsDir() {
			if err := os.MkdirAll(target, dirMode); err != nil {
				return errors.E(errors.KindIO, "create directory", target, err)
			}
			return nil
		}

		if !d.Type().IsRegular() {
			debug.Log("skipping %v, mode %v", path, d.Type())
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.E(errors.KindIO, "stat", path, err)
		}

		wg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, err := copyFile(path, filepath.Dir(target), info.Mode().Perm())
			return err
		})
		return nil
	})

	// a failed copy cancels ctx and thereby the walk, report its error
	if err := wg.Wait(); err != nil {
		return "", err
	}
	if walkErr != nil {
		return "", walkErr
	}

	return root, nil
}

// within reports whether path is dir or lies below it. Both must be
// absolute and clean.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
