// Package tempfile owns the temporary resources of one request: uploaded photo
// files and the buffers loaded from them.
package tempfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/refurnish/internal/domain"
)

// ErrReleased is returned when a released scope is asked to take more resources.
var ErrReleased = errors.New("tempfile: scope already released")

// Scope tracks temporary files and buffers and removes them exactly once.
// Callers create a Scope at request entry and defer Release.
type Scope struct {
	dir    string
	logger *zap.Logger

	mu       sync.Mutex
	paths    []string
	buffers  [][]byte
	released bool
	once     sync.Once
}

// NewScope creates a scope that writes into dir (os.TempDir() when empty).
func NewScope(dir string, logger *zap.Logger) *Scope {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scope{dir: dir, logger: logger}
}

// Save writes r to a new uniquely named file and tracks it. At most limit bytes
// are accepted (limit <= 0 disables the check).
func (s *Scope) Save(r io.Reader, ext, mimeType string, limit int64) (domain.Image, error) {
	if err := s.checkOpen(); err != nil {
		return domain.Image{}, err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return domain.Image{}, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return domain.Image{}, fmt.Errorf("create temp file: %w", err)
	}
	s.Track(path)

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return domain.Image{}, fmt.Errorf("write temp file: %w", err)
	}
	if limit > 0 && n > limit {
		return domain.Image{}, fmt.Errorf("%w: photo exceeds %d bytes", domain.ErrInputValidation, limit)
	}
	return domain.Image{Path: path, MIMEType: mimeType}, nil
}

// Track registers an existing file for removal on Release.
func (s *Scope) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		// late registration: remove immediately so nothing leaks
		_ = os.Remove(path)
		return
	}
	s.paths = append(s.paths, path)
}

// Load reads the image bytes and tracks the buffer.
func (s *Scope) Load(img domain.Image) (domain.Image, error) {
	if err := s.checkOpen(); err != nil {
		return domain.Image{}, err
	}
	data, err := img.Bytes()
	if err != nil {
		return domain.Image{}, err
	}
	s.mu.Lock()
	s.buffers = append(s.buffers, data)
	s.mu.Unlock()
	img.Data = data
	return img, nil
}

// Release removes every tracked file and drops loaded buffers. Only the first
// call does work; later calls return nil.
func (s *Scope) Release() error {
	var errs []error
	s.once.Do(func() {
		s.mu.Lock()
		paths := s.paths
		buffered := len(s.buffers)
		s.paths, s.buffers = nil, nil
		s.released = true
		s.mu.Unlock()

		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", filepath.Base(p), err))
			}
		}
		s.logger.Debug("Temporary resources released",
			zap.Int("files", len(paths)),
			zap.Int("buffers", buffered),
		)
	})
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Failed to release temporary resources", zap.Error(err))
		return err
	}
	return nil
}

// Released reports whether Release has run.
func (s *Scope) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Pending returns the number of tracked files not yet removed.
func (s *Scope) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func (s *Scope) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	return nil
}
