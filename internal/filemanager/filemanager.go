// Package filemanager stores YAML documents on disk with process-safe locking
// and atomic replacement.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ErrLockTimeout is returned when acquiring a file lock times out
var ErrLockTimeout = errors.New("timeout acquiring file lock")

// DefaultLockTimeout is used by NewManager
const DefaultLockTimeout = 5 * time.Second

const lockRetryDelay = 50 * time.Millisecond

// UpdateFunc modifies a document in place
type UpdateFunc[T any] func(doc *T) error

// Manager reads and writes YAML documents of type T.
//
// Every document path has a sibling "<path>.lock" file. Readers take a shared
// lock on it and writers an exclusive one, so the document itself can be
// replaced by rename without invalidating a held lock.
type Manager[T any] struct {
	lockTimeout time.Duration
}

// NewManager creates a manager with DefaultLockTimeout
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{lockTimeout: DefaultLockTimeout}
}

// NewManagerWithTimeout creates a manager with a custom lock timeout
func NewManagerWithTimeout[T any](timeout time.Duration) *Manager[T] {
	return &Manager[T]{lockTimeout: timeout}
}

// LockPath returns the lock file guarding path
func LockPath(path string) string {
	return path + ".lock"
}

// Read loads the document at path under a shared lock. A missing document is
// reported with an error satisfying os.IsNotExist.
func (m *Manager[T]) Read(ctx context.Context, path string) (*T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	unlock, err := m.lock(ctx, path, true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return m.read(path)
}

// Write replaces the document at path under an exclusive lock
func (m *Manager[T]) Write(ctx context.Context, path string, doc *T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	unlock, err := m.lock(ctx, path, false)
	if err != nil {
		return err
	}
	defer unlock()

	return m.write(path, doc)
}

// Update reads the document, applies fn and writes the result back while
// holding the exclusive lock throughout. A missing document starts from the
// zero value of T. Nothing is written when fn fails.
func (m *Manager[T]) Update(ctx context.Context, path string, fn UpdateFunc[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	unlock, err := m.lock(ctx, path, false)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := m.read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read file: %w", err)
		}
		doc = new(T)
	}

	if err := fn(doc); err != nil {
		return fmt.Errorf("update function failed: %w", err)
	}

	return m.write(path, doc)
}

// Delete removes the document and its lock file. Deleting a missing document
// is not an error.
func (m *Manager[T]) Delete(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}

	unlock, err := m.lock(ctx, path, false)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		unlock()
		return fmt.Errorf("failed to remove file: %w", err)
	}

	// Windows cannot remove a lock file that is still held
	unlock()
	_ = os.Remove(LockPath(path))
	return nil
}

func (m *Manager[T]) lock(ctx context.Context, path string, shared bool) (func(), error) {
	fl := flock.New(LockPath(path))

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fl.TryRLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fl.TryLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}

	return func() { _ = fl.Unlock() }, nil
}

func (m *Manager[T]) read(path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &doc, nil
}

func (m *Manager[T]) write(path string, doc *T) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	// Unique temp name so concurrent processes never share one
	tmp := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	_ = f.Sync()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := replaceFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
