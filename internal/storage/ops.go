package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
)

func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune("<>:\"/\\|?*", r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

// ProjectDir returns the per-project download directory under root.
func ProjectDir(root, projectID string) string {
	return filepath.Join(root, Sanitize(projectID))
}

// PDFPath returns where the PDF for doi lives inside dir.
func PDFPath(dir, doi string) string {
	return filepath.Join(dir, domain.PDFFilename(doi))
}

// CachedSize returns the size of a non-empty regular file at path, or 0 if
// there is none.
func CachedSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// CreateTemp opens a scratch file next to its final destination so the
// closing rename stays on one filesystem.
func CreateTemp(dir string) (*os.File, error) {
	return os.CreateTemp(dir, ".download-*.part")
}

func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}
