package platform

import "time"

// Class names the deployment target a Profile's defaults are tuned for,
// matching the original's ROBOTICK_PLATFORM_DESKTOP/MOBILE/EMBEDDED
// build-time switch, resolved here at config-load time instead of at
// compile time.
type Class string

const (
	ClassDesktop  Class = "desktop"
	ClassMobile   Class = "mobile"
	ClassEmbedded Class = "embedded"
)

// Profile captures the platform-tuned knobs a deployment can override:
// how much blackboard storage a tree is expected to need, plus sleep,
// overrun-log and synced-worker settings. The scheduler does not read
// the sleep, overrun-log or synced-worker fields: HybridSleepUntil uses
// CoarseMargin/CoarseStep, sequenced groups always log overruns, and
// synced workers always try to raise their priority.
//
// MaxBlackboardsBytes mirrors the original's DEFAULT_MAX_BLACKBOARDS_BYTES,
// which that engine needs as a hard preallocation budget because its
// workloads buffer cannot grow without invalidating pointers already
// handed to running workloads. pkg/engine.Load has no such constraint —
// its blackboard region is sized exactly from what PreLoad declares, in
// a second buffer built after that size is known (see DESIGN.md) — so
// here MaxBlackboardsBytes is an advisory soft cap a caller may check
// the computed total against, not a preallocation.
type Profile struct {
	Class Class

	MaxBlackboardsBytes uint64

	CoarseSleepMargin time.Duration
	CoarseSleepStep   time.Duration

	TickOverrunLogEnabled bool

	SyncedWorkerAffinityEnabled     bool
	SyncedWorkerPriorityHighEnabled bool
}

// DefaultProfile returns the built-in defaults for class, falling back
// to the desktop profile for an unrecognized class.
func DefaultProfile(class Class) Profile {
	base := Profile{
		Class:                 class,
		CoarseSleepMargin:     CoarseMargin,
		CoarseSleepStep:       CoarseStep,
		TickOverrunLogEnabled: true,
	}

	switch class {
	case ClassMobile:
		base.MaxBlackboardsBytes = 64 * 1024
		base.SyncedWorkerAffinityEnabled = false
		base.SyncedWorkerPriorityHighEnabled = false
	case ClassEmbedded:
		base.MaxBlackboardsBytes = 8 * 1024
		base.SyncedWorkerAffinityEnabled = true
		base.SyncedWorkerPriorityHighEnabled = true
	case ClassDesktop:
		fallthrough
	default:
		base.Class = ClassDesktop
		base.MaxBlackboardsBytes = 128 * 1024
		base.SyncedWorkerAffinityEnabled = true
		base.SyncedWorkerPriorityHighEnabled = false
	}

	return base
}
