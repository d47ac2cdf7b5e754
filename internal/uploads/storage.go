package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload ceiling (100 MB).
const DefaultMaxBytes int64 = 100 << 20

// ThumbnailDir is the sub-directory of the upload root holding per-video frames.
const ThumbnailDir = "thumbs"

var (
	ErrUnsupportedFormat = errors.New("unsupported video format, only MP4, MOV, AVI and WEBM are accepted")
	ErrTooLarge          = errors.New("video exceeds the upload size limit")
)

var allowedExtensions = []string{".mp4", ".mov", ".avi", ".webm"}

// StoredFile describes an upload written to disk.
type StoredFile struct {
	ID       string
	FileName string
	Path     string
	URL      string
}

// Storage writes uploaded videos under a single directory with uuid file names.
type Storage struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

// NewStorage creates dir if needed. urlPrefix is the public path the directory is served under.
func NewStorage(dir, urlPrefix string, maxBytes int64) (*Storage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/"), maxBytes: maxBytes}, nil
}

func (s *Storage) Dir() string { return s.dir }

func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// AllowedExtension reports whether name has an accepted video extension.
func AllowedExtension(name string) bool {
	return slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(name)))
}

// Save copies r to a new file named after a fresh uuid, keeping the original extension.
func (s *Storage) Save(r io.Reader, originalName string) (StoredFile, error) {
	if !AllowedExtension(originalName) {
		return StoredFile{}, ErrUnsupportedFormat
	}

	id := uuid.NewString()
	name := id + strings.ToLower(filepath.Ext(originalName))
	dst := filepath.Join(s.dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create upload: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(r, s.maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(dst)
		if errors.Is(err, ErrTooLarge) {
			return StoredFile{}, err
		}
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}

	return StoredFile{ID: id, FileName: name, Path: dst, URL: s.URL(name)}, nil
}

// URL returns the public URL for a file relative to the upload root.
func (s *Storage) URL(rel string) string {
	return path.Join(s.urlPrefix, filepath.ToSlash(rel))
}

// ThumbnailPath returns the on-disk path and public URL of frame n for video id.
func (s *Storage) ThumbnailPath(id string, n int) (string, string) {
	rel := filepath.Join(ThumbnailDir, id, fmt.Sprintf("%d.jpg", n))
	return filepath.Join(s.dir, rel), s.URL(rel)
}
