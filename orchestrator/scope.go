package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type resource struct {
	name    string
	release func() error
}

// Scope tracks the transient resources of one run. Close releases each of
// them exactly once, newest first.
type Scope struct {
	mu     sync.Mutex
	dir    string
	items  []resource
	closed bool
}

// NewScope creates a private directory under root (the OS temp dir when
// empty) and registers its removal as the first resource.
func NewScope(root, runID string) (*Scope, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(root, "run-"+runID+"-")
	if err != nil {
		return nil, err
	}
	s := &Scope{dir: dir}
	s.Acquire("dir:"+filepath.Base(dir), func() error { return os.RemoveAll(dir) })
	return s, nil
}

// Dir is the run's private directory.
func (s *Scope) Dir() string { return s.dir }

// Acquire registers a release function. On a closed scope it runs at once.
func (s *Scope) Acquire(name string, release func() error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = release()
		return
	}
	s.items = append(s.items, resource{name: name, release: release})
	s.mu.Unlock()
}

// TempFile writes data to a new file in the run directory.
func (s *Scope) TempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	s.Acquire("file:"+filepath.Base(path), func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// Len is the number of resources not yet released.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close releases every resource in reverse acquisition order. Later calls
// are no-ops.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := safeRelease(items[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeRelease(r resource) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("release %s: panic: %v", r.name, rec)
		}
	}()
	if err := r.release(); err != nil {
		return fmt.Errorf("release %s: %w", r.name, err)
	}
	return nil
}
