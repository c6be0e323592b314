// Package rpmruntime defines the capability set the transaction driver
// needs from the RPM runtime: transaction lifecycle, file/id staging,
// ordering, and the commit callback. Production binds this to librpm via
// cgo; pkg/rpmruntime/fake is an in-memory stand-in the driver's own
// tests run against.
package rpmruntime

import "context"

// ProblemFilter mirrors librpm's rpmprobFilterFlags bitmask.
type ProblemFilter uint32

const (
	ProblemNone       ProblemFilter = 0
	ProblemReplacePkg ProblemFilter = 1 << iota
	ProblemOldPackage
	ProblemDiskspace
)

// RunFlag mirrors librpm's rpmtransFlags bitmask relevant to a commit.
type RunFlag uint32

const (
	RunFlagNone RunFlag = 0
	RunFlagTest RunFlag = 1 << iota
)

// Action names the kind of change an install step represents, carried
// alongside the install file so the callback/reason logic can classify
// it without re-deriving it.
type Action int

const (
	ActionInstall Action = iota
	ActionUpdate
	ActionDowngrade
	ActionReinstall
	ActionCleanup
)

// ProgressState is the transaction driver's coarse progress state
// machine: STARTED → PREPARING → WRITING, with IGNORE used during a test
// transaction.
type ProgressState int

const (
	StateStarted ProgressState = iota
	StatePreparing
	StateWriting
	StateIgnore
)

// ProgressEvent is delivered to a NotifyCallback on each rpm transaction
// callback invocation.
type ProgressEvent struct {
	Kind      EventKind
	PackageID string
	Amount    int64
	Total     int64
}

// EventKind mirrors the rpm callback event types the driver cares about.
type EventKind int

const (
	EventInstStart EventKind = iota
	EventInstProgress
	EventUninstStart
	EventUninstProgress
	EventTransProgress
)

// NotifyCallback receives progress events; state is the driver's current
// ProgressState at delivery time (events while PREPARING or IGNORE are
// expected to be dropped by the caller).
type NotifyCallback func(state ProgressState, ev ProgressEvent)

// InstallFile describes one package queued for installation.
type InstallFile struct {
	Path           string
	PackageID      string
	Action         Action
	AllowUntrusted bool
	IsUpdate       bool
}

// Runtime is the capability set the transaction driver consumes from the
// RPM runtime.
type Runtime interface {
	SetRoot(path string)
	SetNotifyCallback(cb NotifyCallback)
	SetVSFlags(flags int)
	SetFlags(flags RunFlag)

	AddInstallFile(f InstallFile) error
	AddRemoveID(packageID string) error

	// Order computes the install/remove ordering; must be called before
	// Run.
	Order() error

	// Run executes the transaction under probsFilter; ctx is honoured
	// only at entry — once started, a commit cannot be cancelled
	// mid-flight.
	Run(ctx context.Context, probsFilter ProblemFilter) error

	// State returns the runtime's current progress state, so the driver
	// can assert it advanced to WRITING after a real (non-test) commit.
	State() ProgressState
}
