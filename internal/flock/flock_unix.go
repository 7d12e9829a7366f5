//go:build unix

// Package flock provides non-blocking advisory locks for container files.
// Writers take an exclusive lock, readers a shared one, both on a sidecar
// lock file next to the container (the container itself is replaced by
// rename during builds, so its inode is not a stable lock target).
package flock

import (
	"errors"
	"os"
	"syscall"
)

// ErrHeld is returned when the lock is already held with a conflicting mode.
var ErrHeld = errors.New("flock: lock held by another process")

// Lock is an acquired advisory lock. The underlying file stays open for
// the lifetime of the lock.
type Lock struct {
	f *os.File
}

// Exclusive acquires an exclusive lock on path's sidecar lock file,
// creating it if needed. It does not block: if any lock is held, ErrHeld
// is returned.
func Exclusive(path string) (*Lock, error) {
	return acquire(path, syscall.LOCK_EX)
}

// Shared acquires a shared lock on path's sidecar lock file. Multiple
// shared holders may coexist; an exclusive holder excludes all others.
func Shared(path string) (*Lock, error) {
	return acquire(path, syscall.LOCK_SH)
}

func acquire(path string, how int) (*Lock, error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release drops the lock and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
