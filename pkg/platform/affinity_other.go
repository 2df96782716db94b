//go:build !linux

package platform

// SetThreadAffinity is a no-op on platforms without Linux-style CPU
// affinity syscalls; the tick scheduler still functions, it just leaves
// thread placement to the host OS scheduler.
func SetThreadAffinity(cpu int) error { return nil }

// SetThreadPriorityHigh is a no-op outside Linux, for the same reason as
// SetThreadAffinity.
func SetThreadPriorityHigh() error { return nil }
