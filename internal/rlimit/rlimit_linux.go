//go:build linux

package rlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAddressSpaceLimit lowers the soft RLIMIT_AS to ceiling bytes and
// returns a function restoring the captured previous limit. The hard limit
// is left untouched so the restore cannot fail for lack of privilege.
func setAddressSpaceLimit(ceiling uint64) (func(), error) {
	var prev unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &prev); err != nil {
		return nil, fmt.Errorf("getrlimit RLIMIT_AS: %w", err)
	}

	next := unix.Rlimit{Cur: ceiling, Max: prev.Max}
	if prev.Max != unix.RLIM_INFINITY && ceiling > prev.Max {
		next.Cur = prev.Max
	}

	if err := unix.Setrlimit(unix.RLIMIT_AS, &next); err != nil {
		return nil, fmt.Errorf("setrlimit RLIMIT_AS: %w", err)
	}

	captured := prev
	return func() {
		_ = unix.Setrlimit(unix.RLIMIT_AS, &captured)
	}, nil
}
