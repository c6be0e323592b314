// Package fake is an in-memory rpmruntime.Runtime good enough to drive
// the transaction driver's own tests: it records what it was asked to do
// and advances through the same STARTED→PREPARING→WRITING states a real
// commit would, without touching rpmdb or the filesystem.
package fake

import (
	"context"

	"github.com/solvable-go/dnfcore/pkg/rpmruntime"
)

// Runtime is the in-memory fake.
type Runtime struct {
	root  string
	cb    rpmruntime.NotifyCallback
	flags rpmruntime.RunFlag

	Installs []rpmruntime.InstallFile
	Removes  []string

	ordered bool
	state   rpmruntime.ProgressState

	// FailOrder/FailRun let a test force a specific phase to error.
	FailOrder error
	FailRun   error
}

// New returns a fresh fake runtime in the STARTED state.
func New() *Runtime {
	return &Runtime{state: rpmruntime.StateStarted}
}

func (r *Runtime) SetRoot(path string)                          { r.root = path }
func (r *Runtime) SetNotifyCallback(cb rpmruntime.NotifyCallback) { r.cb = cb }
func (r *Runtime) SetVSFlags(int)                                {}
func (r *Runtime) SetFlags(flags rpmruntime.RunFlag)             { r.flags = flags }

func (r *Runtime) AddInstallFile(f rpmruntime.InstallFile) error {
	r.Installs = append(r.Installs, f)
	return nil
}

func (r *Runtime) AddRemoveID(packageID string) error {
	r.Removes = append(r.Removes, packageID)
	return nil
}

func (r *Runtime) Order() error {
	if r.FailOrder != nil {
		return r.FailOrder
	}
	r.ordered = true
	return nil
}

// Run executes the fake transaction: emits INST_START/UNINST_START
// events for everything staged, transitioning to WRITING on the first
// one (or IGNORE if RunFlagTest is set), then settles at WRITING/IGNORE.
func (r *Runtime) Run(ctx context.Context, _ rpmruntime.ProblemFilter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.FailRun != nil {
		return r.FailRun
	}

	testRun := r.flags&rpmruntime.RunFlagTest != 0

	first := true
	emit := func(kind rpmruntime.EventKind, pkgID string) {
		if first {
			if testRun {
				r.state = rpmruntime.StateIgnore
			} else {
				r.state = rpmruntime.StateWriting
			}
			first = false
		}
		if r.cb != nil {
			r.cb(r.state, rpmruntime.ProgressEvent{Kind: kind, PackageID: pkgID})
		}
	}

	for _, in := range r.Installs {
		emit(rpmruntime.EventInstStart, in.PackageID)
	}
	for _, rm := range r.Removes {
		emit(rpmruntime.EventUninstStart, rm)
	}

	return nil
}

func (r *Runtime) State() rpmruntime.ProgressState { return r.state }

// Ordered reports whether Order was called, for test assertions.
func (r *Runtime) Ordered() bool { return r.ordered }
