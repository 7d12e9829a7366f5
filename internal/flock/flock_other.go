//go:build !unix

package flock

import "errors"

// ErrHeld is returned when the lock is already held with a conflicting mode.
var ErrHeld = errors.New("flock: lock held by another process")

// Lock is a no-op on platforms without flock(2). Containers remain usable;
// concurrent-writer protection is simply not provided.
type Lock struct{}

// Exclusive is a no-op on this platform.
func Exclusive(string) (*Lock, error) { return &Lock{}, nil }

// Shared is a no-op on this platform.
func Shared(string) (*Lock, error) { return &Lock{}, nil }

// Release is a no-op on this platform.
func (l *Lock) Release() error { return nil }
