// Package transaction implements the commit state machine that turns a
// solved Goal into changes on disk: a fixed seven-phase driver (install,
// remove, remove-helper construction, erased-by-package-hash, ordering +
// test-transaction, commit, yumdb-write + cache-cleanup), plus the
// free-space precheck and trust (GPG) check that gate it. The
// orchestration style follows a db-executor pattern, generalized from
// "run one pacman subprocess" to a multi-phase rpm transaction driver.
package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/solvable-go/dnfcore/pkg/dnferr"
	"github.com/solvable-go/dnfcore/pkg/goal"
	"github.com/solvable-go/dnfcore/pkg/log"
	"github.com/solvable-go/dnfcore/pkg/multierror"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/reasonstore"
	"github.com/solvable-go/dnfcore/pkg/rpmruntime"
	"github.com/solvable-go/dnfcore/pkg/sack"
)

// Flags are the transaction driver's run-time flags.
type Flags int

const (
	FlagNone Flags = 0
	FlagTest Flags = 1 << iota
	FlagOnlyTrusted
	FlagAllowReinstall
	FlagAllowDowngrade
	FlagNoDiskSpaceCheck
)

// Keyring verifies an install file's GPG signature.
type Keyring interface {
	Verify(path string) (valid bool, err error)
}

// RepoInfo resolves a package id to the repo-level facts the driver
// needs: its cached file path, and whether that repo requires gpgcheck.
type RepoInfo interface {
	CachedPath(id pool.ID) (path string, ok bool)
	GPGCheck(id pool.ID) bool
	Size(id pool.ID) int64
}

// Driver owns the rpm runtime, reason store, keyring and per-run mutable
// state (install/remove/remove_helper/pkgs_to_download lists and the
// erased_by_package_hash map) for one commit.
type Driver struct {
	sack    *sack.Sack
	runtime rpmruntime.Runtime
	reasons *reasonstore.Store
	keyring Keyring
	repos   RepoInfo
	log     *log.Logger

	// correlationID identifies one Commit run; Commit logs it in its
	// opening debug line. Other log lines do not carry it.
	correlationID uuid.UUID

	uid        int
	flags      Flags
	cachedir   string
	releasever string

	install      []installEntry
	remove       []removeEntry
	removeHelper []removeEntry
	toDownload   []pool.ID

	// erasedByPackageHash maps a new package's NEVRA to the predecessor
	// it displaces, so reasons can be propagated during the yumdb-write
	// phase.
	erasedByPackageHash map[string]pool.ID

	progress *progressTracker
}

// progressTracker mirrors the driver's own STARTED -> PREPARING -> WRITING
// view of a commit and derives a running speed from successive events
// delivered while in WRITING: (amount - last amount) / elapsed since the
// previous tick. A state transition resets the tick baseline so a stale
// PREPARING-phase amount never gets diffed against a WRITING-phase one.
type progressTracker struct {
	mu    sync.Mutex
	state rpmruntime.ProgressState

	lastTick   time.Time
	lastAmount int64
	speed      float64
	last       rpmruntime.ProgressEvent
}

func (t *progressTracker) onEvent(state rpmruntime.ProgressState, ev rpmruntime.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state != t.state {
		t.state = state
		t.lastTick = time.Time{}
		t.lastAmount = 0
	}

	t.last = ev
	if state != rpmruntime.StateWriting {
		return
	}

	now := time.Now()
	if !t.lastTick.IsZero() {
		if elapsed := now.Sub(t.lastTick).Seconds(); elapsed > 0 {
			t.speed = float64(ev.Amount-t.lastAmount) / elapsed
		}
	}
	t.lastTick = now
	t.lastAmount = ev.Amount
}

func (t *progressTracker) snapshot() (rpmruntime.ProgressState, float64, rpmruntime.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.speed, t.last
}

type installEntry struct {
	id     pool.ID
	action rpmruntime.Action
}

type removeEntry struct {
	id     pool.ID
	pkgid  string
	action rpmruntime.Action
}

// New returns a Driver for one commit run.
func New(s *sack.Sack, rt rpmruntime.Runtime, reasons *reasonstore.Store, keyring Keyring, repos RepoInfo, uid int, flags Flags, cachedir, releasever string) *Driver {
	return &Driver{
		sack:                s,
		runtime:             rt,
		reasons:             reasons,
		keyring:             keyring,
		repos:               repos,
		log:                 s.Logger().Child("transaction"),
		correlationID:       uuid.New(),
		uid:                 uid,
		flags:               flags,
		cachedir:            cachedir,
		releasever:          releasever,
		erasedByPackageHash: make(map[string]pool.ID),
		progress:            &progressTracker{state: rpmruntime.StateStarted},
	}
}

// Progress returns the driver's current progress state, the most recent
// event delivered for it, and the running write speed derived from
// successive WRITING-state events (0 outside WRITING or before a second
// event has arrived to diff against).
func (d *Driver) Progress() (state rpmruntime.ProgressState, speed float64, last rpmruntime.ProgressEvent) {
	return d.progress.snapshot()
}

// CorrelationID identifies this Driver's Commit run. A host managing many
// sacks can use it to tie together log lines from one in-flight
// transaction.
func (d *Driver) CorrelationID() uuid.UUID {
	return d.correlationID
}

// Depsolve runs the goal with ALLOW_UNINSTALL, gathers the
// install/reinstall/downgrade/update set, and populates the download
// queue with every package lacking a valid on-disk cache entry.
func (d *Driver) Depsolve(g *goal.Goal) error {
	if _, err := g.Run(goal.RunAllowUninstall); err != nil {
		return err
	}

	ids := append([]pool.ID(nil), g.ListInstalls()...)
	ids = append(ids, g.ListReinstalls()...)
	ids = append(ids, g.ListDowngrades()...)
	ids = append(ids, g.ListUpgrades()...)

	for _, id := range ids {
		if d.sack.Pool().Repo(id).Name == "" {
			return dnferr.New(dnferr.InternalError, "package %s has no resolved repository", d.sack.Pool().NEVRA(id))
		}

		if _, cached := d.repos.CachedPath(id); !cached {
			d.toDownload = append(d.toDownload, id)
		}
	}

	return nil
}

// PackagesToDownload returns the download queue Depsolve populated.
func (d *Driver) PackagesToDownload() []pool.ID {
	return append([]pool.ID(nil), d.toDownload...)
}

// checkFreeSpace computes total download size and compares it against
// the cachedir filesystem's free bytes.
func (d *Driver) checkFreeSpace() error {
	if d.flags&FlagNoDiskSpaceCheck != 0 {
		return nil
	}

	var total int64
	for _, id := range d.toDownload {
		total += d.repos.Size(id)
	}
	if total == 0 {
		return nil
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(d.cachedir, &stat); err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "statfs on cachedir %q", d.cachedir)
	}

	free := int64(stat.Bavail) * int64(stat.Bsize)
	if free < total {
		return dnferr.New(dnferr.NoSpace, "need %s, only %s free in %q",
			formatBytes(total), formatBytes(free), d.cachedir)
	}

	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for next := n / unit; next >= unit; next /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// checkTrust verifies the GPG signature of every install file. A failure
// is fatal if the source repo requires gpgcheck or the driver was
// flagged ONLY_TRUSTED; otherwise it's logged and ignored.
func (d *Driver) checkTrust(g *goal.Goal) error {
	for _, entry := range d.install {
		path, ok := d.repos.CachedPath(entry.id)
		if !ok {
			continue
		}

		valid, err := d.keyring.Verify(path)
		if err != nil {
			return dnferr.Wrap(dnferr.InternalError, err, "verifying signature for %q", path)
		}
		if valid {
			continue
		}

		if d.repos.GPGCheck(entry.id) || d.flags&FlagOnlyTrusted != 0 {
			return dnferr.New(dnferr.GpgSignatureInvalid, "invalid signature for %q", path)
		}

		d.log.Warnln("ignoring invalid signature for", path)
	}

	return nil
}

// Commit orchestrates the fixed seven-phase state machine: install,
// remove, remove-helper construction, erased-by-package-hash, ordering +
// test-transaction, commit, yumdb-write + cache cleanup.
func (d *Driver) Commit(ctx context.Context, g *goal.Goal) error {
	d.log.Debugln("commit", d.correlationID, "starting")

	d.runtime.SetNotifyCallback(d.progress.onEvent)

	if err := d.checkFreeSpace(); err != nil {
		return err
	}

	// Phase 1: install.
	installs := append([]pool.ID(nil), g.ListInstalls()...)
	installs = append(installs, g.ListReinstalls()...)
	installs = append(installs, g.ListDowngrades()...)
	installs = append(installs, g.ListUpgrades()...)

	installSet := make(map[pool.ID]bool, len(installs))
	for _, id := range installs {
		installSet[id] = true
	}

	reinstalls := make(map[pool.ID]bool)
	for _, id := range g.ListReinstalls() {
		reinstalls[id] = true
	}
	downgrades := make(map[pool.ID]bool)
	for _, id := range g.ListDowngrades() {
		downgrades[id] = true
	}

	for _, id := range installs {
		var action rpmruntime.Action
		switch {
		case reinstalls[id]:
			action = rpmruntime.ActionReinstall
		case downgrades[id]:
			action = rpmruntime.ActionDowngrade
		default:
			action = rpmruntime.ActionInstall
			if obsoletes := g.ListObsoletedByPackage(id); len(obsoletes) > 0 {
				action = rpmruntime.ActionUpdate
			}
		}

		d.install = append(d.install, installEntry{id: id, action: action})
	}

	if err := d.checkTrust(g); err != nil {
		return err
	}

	for _, entry := range d.install {
		path, ok := d.repos.CachedPath(entry.id)
		if !ok {
			return dnferr.New(dnferr.FileNotFound, "no cached file for %s", d.sack.Pool().NEVRA(entry.id))
		}

		isUpdate := entry.action == rpmruntime.ActionUpdate
		allowUntrusted := d.flags&FlagOnlyTrusted == 0

		if err := d.runtime.AddInstallFile(rpmruntime.InstallFile{
			Path: path, PackageID: d.sack.Pool().NEVRA(entry.id),
			Action: entry.action, AllowUntrusted: allowUntrusted, IsUpdate: isUpdate,
		}); err != nil {
			return dnferr.Wrap(dnferr.InternalError, err, "staging install of %q", path)
		}
	}

	// Phase 2: remove.
	for _, id := range g.ListErasures() {
		pkgid := d.sack.Pool().NEVRA(id) // pre-read identity; sack is invalidated after commit
		action := rpmruntime.ActionInstall

		if installSet[id] {
			action = rpmruntime.ActionCleanup
		}

		d.remove = append(d.remove, removeEntry{id: id, pkgid: pkgid, action: action})

		if err := d.runtime.AddRemoveID(pkgid); err != nil {
			return dnferr.Wrap(dnferr.InternalError, err, "staging removal of %q", pkgid)
		}
	}

	for _, id := range g.ListObsoleted() {
		pkgid := d.sack.Pool().NEVRA(id)
		action := rpmruntime.ActionInstall
		if installSet[id] {
			action = rpmruntime.ActionCleanup
		}
		d.remove = append(d.remove, removeEntry{id: id, pkgid: pkgid, action: action})
	}

	// Phase 3: remove-helper construction.
	for _, id := range append(append([]pool.ID(nil), g.ListUpgrades()...), g.ListDowngrades()...) {
		for _, obsoleted := range g.ListObsoletedByPackage(id) {
			d.removeHelper = append(d.removeHelper, removeEntry{
				id: obsoleted, pkgid: d.sack.Pool().NEVRA(obsoleted), action: rpmruntime.ActionCleanup,
			})
		}
	}

	// Phase 4: erased_by_package_hash.
	erasedSource := append(append([]pool.ID(nil), g.ListUpgrades()...), g.ListDowngrades()...)
	erasedSource = append(erasedSource, g.ListReinstalls()...)
	for _, id := range erasedSource {
		for _, obsoleted := range g.ListObsoletedByPackage(id) {
			d.erasedByPackageHash[d.sack.Pool().NEVRA(id)] = obsoleted
		}
	}
	// Phase 5: ordering + test-transaction.
	d.runtime.SetRoot("")
	if err := d.runtime.Order(); err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "ordering transaction")
	}

	testFlags := rpmruntime.RunFlagTest
	d.runtime.SetFlags(testFlags)
	if err := d.runtime.Run(ctx, d.problemsFilter()); err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "test transaction")
	}

	// Phase 6: commit.
	var runFlags rpmruntime.RunFlag
	if d.flags&FlagTest != 0 {
		runFlags = rpmruntime.RunFlagTest
	}
	d.runtime.SetFlags(runFlags)

	if err := d.runtime.Run(ctx, d.problemsFilter()); err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "commit transaction")
	}

	if d.flags&FlagTest == 0 && d.runtime.State() != rpmruntime.StateWriting {
		return dnferr.New(dnferr.InternalError, "rpm transaction did not reach WRITING state")
	}

	if d.flags&FlagTest != 0 {
		return nil
	}

	// Phase 7: yumdb write + cache cleanup.
	if err := d.writeReasons(g); err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "writing yumdb reasons")
	}
	d.cleanupCache()

	return nil
}

func (d *Driver) problemsFilter() rpmruntime.ProblemFilter {
	var f rpmruntime.ProblemFilter
	if d.flags&FlagAllowReinstall != 0 {
		f |= rpmruntime.ProblemReplacePkg
	}
	if d.flags&FlagAllowDowngrade != 0 {
		f |= rpmruntime.ProblemOldPackage
	}
	if d.flags&FlagNoDiskSpaceCheck != 0 {
		f |= rpmruntime.ProblemDiskspace
	}
	return f
}

// writeReasons implements the reason-propagation rules: kernel (install-
// only) packages get "user"; upgrade/downgrade/reinstall installs
// inherit the displaced predecessor's stored reason, falling back to
// "dep"; everything else is "user" iff the goal's own reason for it is
// USER, else "dep". Removed packages have their reason entry deleted.
func (d *Driver) writeReasons(g *goal.Goal) error {
	p := d.sack.Pool()
	var errs multierror.MultiError

	for _, entry := range d.install {
		nevra := p.NEVRA(entry.id)
		reason := "dep"

		switch {
		case isInstallOnlyKernel(d.sack, entry.id):
			reason = "user"
		case entry.action == rpmruntime.ActionUpdate, entry.action == rpmruntime.ActionDowngrade, entry.action == rpmruntime.ActionReinstall:
			if predecessor, ok := d.erasedByPackageHash[nevra]; ok {
				if stored, found, _ := d.reasons.Get(p.NEVRA(predecessor), reasonstore.Reason); found {
					reason = stored
				}
			}
		default:
			if g.Reason(entry.id) == goal.ReasonUser {
				reason = "user"
			}
		}

		errs.Add(d.reasons.Set(nevra, reasonstore.Reason, reason))
		errs.Add(d.reasons.Set(nevra, reasonstore.FromRepo, p.Repo(entry.id).Name))
		errs.Add(d.reasons.Set(nevra, reasonstore.InstalledBy, fmt.Sprintf("%d", d.uid)))
		if d.releasever != "" {
			errs.Add(d.reasons.Set(nevra, reasonstore.Releasever, d.releasever))
		}
	}

	for _, entry := range d.remove {
		errs.Add(d.reasons.RemoveAll(entry.pkgid))
	}
	for _, entry := range d.removeHelper {
		errs.Add(d.reasons.RemoveAll(entry.pkgid))
	}

	return errs.Return()
}

func isInstallOnlyKernel(s *sack.Sack, id pool.ID) bool {
	name := s.Pool().Name(id)
	for _, n := range s.InstallOnlyNames() {
		if n == name {
			return true
		}
	}
	return false
}

// cleanupCache deletes downloaded RPMs from cachedir, skipping any whose
// resolved path is not prefixed by cachedir (cmdline/local files).
func (d *Driver) cleanupCache() {
	for _, id := range d.toDownload {
		path, ok := d.repos.CachedPath(id)
		if !ok {
			continue
		}
		if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(d.cachedir)) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			d.log.Warnln("could not remove cached file", path, err)
		}
	}
}
