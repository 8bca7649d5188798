package rolling

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// renameFile moves from to to, creating the parent directories of to. Moves across filesystems
// fall back to copy and delete.
func renameFile(from, to string) error {
	if from == to {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("error creating directory for %s: %w", to, err)
	}

	err := os.Rename(from, to)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("error renaming %s to %s: %w", from, to, err)
	}

	if err := copyFile(from, to); err != nil {
		os.Remove(to)
		return fmt.Errorf("error copying %s to %s: %w", from, to, err)
	}
	return os.Remove(from)
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// notExists reports whether nothing exists at path. Other stat errors are left to the
// operation that follows.
func notExists(path string) bool {
	_, err := os.Lstat(path)
	return errors.Is(err, fs.ErrNotExist)
}
