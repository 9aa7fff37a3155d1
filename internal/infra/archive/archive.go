// Package archive reads report archives exported by the platform.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	// maxPathLength is the maximum length of an entry name.
	maxPathLength = 255

	// maxArchiveEntries is the maximum number of files in an archive.
	maxArchiveEntries = 1000

	// maxEntrySize is the maximum decompressed size of the extracted entry.
	maxEntrySize = 2 << 30 // 2GB
)

// ErrEntryNotFound is returned when the archive lacks the requested entry.
var ErrEntryNotFound = errors.New("archive entry not found")

// Limits bounds what Extract accepts.
type Limits struct {
	MaxEntries   int
	MaxEntrySize int64
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{MaxEntries: maxArchiveEntries, MaxEntrySize: maxEntrySize}
}

// sanitizeArchivePath validates a file path from an archive and returns its
// base name.
func sanitizeArchivePath(name string) (string, error) {
	if len(name) > maxPathLength {
		return "", fmt.Errorf("path too long: %d > %d", len(name), maxPathLength)
	}
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("backslash in path not allowed: %s", name)
	}

	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}
	if strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("path traversal not allowed: %s", name)
	}
	return filepath.Base(cleaned), nil
}

// HasEntry reports whether the archive at path opens and holds entry. A
// missing, empty or truncated file reports false without error so that it
// can be polled while the export is still being flushed. A complete archive
// without entry returns ErrEntryNotFound.
func HasEntry(path, entry string) (bool, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, zip.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	defer r.Close()

	if _, err := find(&r.Reader, entry); err != nil {
		return false, err
	}
	return true, nil
}

// Extract copies entry out of the archive at path into dir and returns the
// written file's path. Only the named entry is read.
func Extract(path, entry, dir string, limits Limits) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to read zip %s: %w", path, err)
	}
	defer r.Close()

	if limits.MaxEntries > 0 && len(r.File) > limits.MaxEntries {
		return "", fmt.Errorf("too many files in archive: %d > %d", len(r.File), limits.MaxEntries)
	}

	file, err := find(&r.Reader, entry)
	if err != nil {
		return "", err
	}

	safeName, err := sanitizeArchivePath(file.Name)
	if err != nil {
		return "", err
	}

	maxSize := limits.MaxEntrySize
	if maxSize <= 0 {
		maxSize = maxEntrySize
	}
	if file.UncompressedSize64 > uint64(maxSize) {
		return "", fmt.Errorf("file %s exceeds max size: %d > %d", safeName, file.UncompressedSize64, maxSize)
	}

	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", safeName, err)
	}
	defer rc.Close()

	dest := filepath.Join(dir, safeName)
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	// LimitReader guards against entries larger than their declared size.
	n, copyErr := io.Copy(out, io.LimitReader(rc, int64(file.UncompressedSize64)+1))
	syncErr := out.Sync()
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to extract %s: %w", safeName, copyErr)
	case n > int64(file.UncompressedSize64):
		err = fmt.Errorf("file %s actual size exceeds declared size", safeName)
	case syncErr != nil:
		err = fmt.Errorf("failed to sync %s: %w", dest, syncErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to close %s: %w", dest, closeErr)
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func find(r *zip.Reader, entry string) (*zip.File, error) {
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Name == entry || filepath.Base(filepath.Clean(f.Name)) == entry {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entry)
}
