// Package rlimit applies a best-effort memory ceiling around one inspection
// execution. The ceiling is the process address-space limit, which is
// process-global: concurrent executions race on setting and restoring it.
// This coarseness is accepted; the limit is advisory, not a security
// boundary.
package rlimit

import "github.com/Atiyakh/dyright/internal/log"

// Limits is a per-request resource limit override. Only RAMMB is enforced;
// CPUPercent is carried for wire compatibility but has no effect.
type Limits struct {
	RAMMB      int
	CPUPercent int
}

// Apply lowers the process memory ceiling to l.RAMMB MiB and returns a
// restore function that reinstates the previous ceiling. The restore
// function must be called when the execution finishes, on every path.
//
// When no ceiling is requested, or the platform does not support the limit
// primitive, Apply is a no-op and the returned restore does nothing.
func Apply(l Limits) func() {
	if l.RAMMB <= 0 {
		return func() {}
	}

	restore, err := setAddressSpaceLimit(uint64(l.RAMMB) * 1024 * 1024)
	if err != nil {
		log.WithComponent("rlimit").Warn("failed to set memory limit", "ram_mb", l.RAMMB, "error", err)
		return func() {}
	}
	return restore
}
