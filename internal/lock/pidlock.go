// Package lock guards against running two service instances over the same
// listen address.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// InstanceLock is a single-instance lock implemented via a PID file plus
// flock(2). The lock lives as long as the file descriptor stays open, so a
// crashed process releases it automatically.
type InstanceLock struct {
	path string
	f    *os.File
}

// DefaultPath derives a lock file path for a listen address, e.g.
// "127.0.0.1:8765" becomes "<tmp>/dyright-127.0.0.1-8765.lock".
func DefaultPath(listen string) string {
	name := strings.NewReplacer(":", "-", "/", "-").Replace(listen)
	return filepath.Join(os.TempDir(), "dyright-"+name+".lock")
}

// Acquire takes an exclusive non-blocking lock at lockPath and records the
// current PID in it. A second caller fails immediately instead of waiting.
func Acquire(lockPath string) (*InstanceLock, error) {
	if lockPath == "" {
		return nil, fmt.Errorf("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("another instance holds %s: %w", lockPath, err)
	}

	if err := f.Truncate(0); err != nil {
		release(f)
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		release(f)
		return nil, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		release(f)
		return nil, fmt.Errorf("write pid: %w", err)
	}

	return &InstanceLock{path: lockPath, f: f}, nil
}

func (l *InstanceLock) Path() string { return l.path }

// Release unlocks and closes the lock file. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := release(l.f)
	l.f = nil
	return err
}

func release(f *os.File) error {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return f.Close()
}
