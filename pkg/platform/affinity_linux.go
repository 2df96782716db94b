//go:build linux

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetThreadAffinity pins the calling OS thread to the given CPU. Callers
// must have already locked the calling goroutine to its OS thread with
// runtime.LockOSThread, since affinity is a thread-level, not
// goroutine-level, property.
func SetThreadAffinity(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("platform: set thread affinity to cpu %d: %w", cpu, err)
	}
	return nil
}

// SetThreadPriorityHigh raises the calling OS thread's scheduling
// priority within the default (non-real-time) scheduling policy. It is
// best-effort: most deployments won't have CAP_SYS_NICE, so a failure
// here is logged by the caller and otherwise ignored rather than
// treated as fatal.
func SetThreadPriorityHigh() error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -10); err != nil {
		return fmt.Errorf("platform: raise thread priority: %w", err)
	}
	return nil
}
