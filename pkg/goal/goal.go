// Package goal implements the staging queue, protected-package policy,
// job construction, install-only-limit enforcement and transaction
// listing accessors that sit between the query/selector layer and a
// Solver. Staging follows a method-chaining builder style, generalized
// to accumulate a solver job queue instead of config options.
package goal

import (
	"fmt"
	"sort"

	"github.com/solvable-go/dnfcore/pkg/dnferr"
	"github.com/solvable-go/dnfcore/pkg/packageset"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/sack"
	"github.com/solvable-go/dnfcore/pkg/selector"
	"github.com/solvable-go/dnfcore/pkg/solver"
)

// RunFlag are the flags passed to Run.
type RunFlag int

const (
	RunNone RunFlag = 0
	RunForceBest RunFlag = 1 << iota
	RunVerify
	RunIgnoreWeakDeps
	RunAllowUninstall
)

// EraseFlag are per-job flags accepted by Erase/EraseSelector.
type EraseFlag int

const (
	EraseNone       EraseFlag = 0
	EraseCleanDeps  EraseFlag = 1 << iota
)

// Reason classifies why a decision was made, per Goal.Reason.
type Reason int

const (
	ReasonUser Reason = iota
	ReasonClean
	ReasonWeakdep
	ReasonDep
)

func (r Reason) String() string {
	switch r {
	case ReasonUser:
		return "user"
	case ReasonClean:
		return "clean"
	case ReasonWeakdep:
		return "weakdep"
	default:
		return "dep"
	}
}

type stagedJob struct {
	flags   solver.JobFlag
	operand pool.ID
}

// Goal owns the staging queue, protected set, and the solver/transaction
// resulting from Run.
type Goal struct {
	sack      *sack.Sack
	newSolver func(installed []pool.ID) solver.Solver

	staging   []stagedJob
	protected *packageset.Set

	sv       solver.Solver
	steps    []solver.Step
	problems int
	protErr  []pool.ID // packages the failed solve would remove from protected

	multiversionNames map[string]bool
}

// New returns a Goal bound to s. newSolver constructs the Solver used by
// Run, seeded with the sack's currently installed package ids — a
// production host supplies a libsolv-backed constructor, tests supply
// pkg/solver/naive.New.
func New(s *sack.Sack, newSolver func(installed []pool.ID) solver.Solver) *Goal {
	g := &Goal{
		sack:              s,
		newSolver:         newSolver,
		protected:         packageset.New(),
		multiversionNames: make(map[string]bool),
	}

	if kernel, ok := s.RunningKernel(); ok {
		g.protected.Add(kernel)
	}

	return g
}

// Protect adds ids to the protected set: packages the solver must not
// remove.
func (g *Goal) Protect(ids ...pool.ID) {
	for _, id := range ids {
		g.protected.Add(id)
	}
}

func (g *Goal) Install(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall, operand: pkg})
}

func (g *Goal) InstallOptional(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall | solver.JobWeak, operand: pkg})
}

func (g *Goal) InstallSelector(sel *selector.Selector) error {
	ids, err := g.selectorIDs(sel)
	if err != nil {
		return err
	}
	for _, id := range ids {
		g.Install(id)
	}
	return nil
}

func (g *Goal) Erase(pkg pool.ID, flags EraseFlag) {
	f := solver.JobSolvable | solver.JobErase
	if flags&EraseCleanDeps != 0 {
		f |= solver.JobCleandeps
	}
	g.staging = append(g.staging, stagedJob{flags: f, operand: pkg})
}

func (g *Goal) EraseSelector(sel *selector.Selector, flags EraseFlag) error {
	ids, err := g.selectorIDs(sel)
	if err != nil {
		return err
	}
	for _, id := range ids {
		g.Erase(id, flags)
	}
	return nil
}

func (g *Goal) UpgradeAll() {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvableAll | solver.JobUpdate})
}

func (g *Goal) Upgrade(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobUpdate, operand: pkg})
}

func (g *Goal) UpgradeToSelector(sel *selector.Selector) error {
	ids, err := g.selectorIDs(sel)
	if err != nil {
		return err
	}
	for _, id := range ids {
		g.Upgrade(id)
	}
	return nil
}

func (g *Goal) DowngradeTo(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall, operand: pkg})
}

func (g *Goal) DistupgradeAll() {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvableAll | solver.JobDistupgrade})
}

func (g *Goal) Distupgrade(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobDistupgrade, operand: pkg})
}

func (g *Goal) Userinstalled(pkg pool.ID) {
	g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall, operand: pkg})
}

func (g *Goal) selectorIDs(sel *selector.Selector) ([]pool.ID, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	// Resolved against the pool directly rather than through
	// Selector.ToQuery: the base name/provides/file axis, then arch, evr
	// and reponame ANDed in. The sack's excludes/includes are not applied.
	p := g.sack.Pool()

	var ids []pool.ID
	switch {
	case sel.Name != nil:
		for _, id := range p.AllPackages() {
			if p.Name(id) == *sel.Name {
				ids = append(ids, id)
			}
		}
	case sel.Provides != nil:
		ids = p.WhatProvides(*sel.Provides)
	case sel.File != nil:
		for _, id := range p.AllPackages() {
			for _, f := range p.Files(id) {
				if f == *sel.File {
					ids = append(ids, id)
				}
			}
		}
	}

	if sel.Arch != nil {
		ids = filterByArch(p, ids, *sel.Arch)
	}
	if sel.EVR != nil || sel.Reponame != nil {
		kept := ids[:0:0]
		for _, id := range ids {
			if sel.EVR != nil && p.EVR(id).String() != *sel.EVR {
				continue
			}
			if sel.Reponame != nil && p.Repo(id).Name != *sel.Reponame {
				continue
			}
			kept = append(kept, id)
		}
		ids = kept
	}

	if len(ids) == 0 {
		return nil, dnferr.New(dnferr.PackageNotFound, "selector matched no packages")
	}

	return ids, nil
}

func filterByArch(p pool.Pool, ids []pool.ID, arch string) []pool.ID {
	out := ids[:0:0]
	for _, id := range ids {
		if p.Arch(id) == arch {
			out = append(out, id)
		}
	}
	return out
}

func installedIDs(p pool.Pool) []pool.ID {
	var out []pool.ID
	for _, id := range p.AllPackages() {
		if p.Repo(id).Name == pool.SystemRepo {
			out = append(out, id)
		}
	}
	return out
}

// buildJobs clones the staging queue and mixes in the global flags per
// the fixed job-construction rules: force-best, multiversion for
// install-only names, allow-uninstall for every unprotected installed
// package, and verify.
func (g *Goal) buildJobs(flags RunFlag) []solver.Job {
	p := g.sack.Pool()

	jobs := make([]solver.Job, 0, len(g.staging))
	for _, j := range g.staging {
		f := j.flags
		if flags&RunForceBest != 0 {
			f |= solver.JobForcebest
		}
		jobs = append(jobs, solver.Job{Flags: f, Operand: j.operand})
	}

	for _, name := range g.sack.InstallOnlyNames() {
		g.multiversionNames[name] = true
		for _, id := range p.AllPackages() {
			if p.Name(id) == name {
				jobs = append(jobs, solver.Job{Flags: solver.JobMultiversion | solver.JobSolvableProvides, Operand: id})
			}
		}
	}

	for _, id := range installedIDs(p) {
		if !g.protected.Has(id) {
			jobs = append(jobs, solver.Job{Flags: solver.JobAllowUninstall | solver.JobSolvable, Operand: id})
		}
	}

	if flags&RunVerify != 0 {
		jobs = append(jobs, solver.Job{Flags: solver.JobVerify | solver.JobSolvableAll})
	}

	return jobs
}

// Run clones the staging queue into solver jobs, configures solver
// flags, solves, checks for protected-package removal, and — for
// install-only names exceeding their limit — re-solves exactly once with
// a widened erase set. Returns 0 on success.
func (g *Goal) Run(flags RunFlag) (int, error) {
	installed := installedIDs(g.sack.Pool())
	g.sv = g.newSolver(installed)

	g.sv.SetFlag(solver.FlagAllowVendorChange, true)
	g.sv.SetFlag(solver.FlagBestObeyPolicy, true)
	g.sv.SetFlag(solver.FlagYumObsoletes, true)
	g.sv.SetFlag(solver.FlagKeepOrphans, hasDistupgrade(g.staging))
	if flags&RunIgnoreWeakDeps != 0 {
		g.sv.SetFlag(solver.FlagIgnoreRecommended, true)
	}

	jobs := g.buildJobs(flags)

	problems, err := g.sv.Solve(jobs)
	if err != nil {
		return 0, dnferr.Wrap(dnferr.InternalError, err, "solve failed")
	}

	if problems == 0 {
		g.steps = g.sv.CreateTransaction()

		if removed := g.protectedRemovals(); len(removed) > 0 {
			g.protErr = removed
			g.problems = problems + 1
			g.steps = nil
			return g.problems, dnferr.New(dnferr.RemovalOfProtectedPkg, "solve would remove protected packages")
		}

		if err := g.enforceInstallOnlyLimit(flags); err != nil {
			return 0, err
		}

		g.problems = 0
		return 0, nil
	}

	g.problems = problems
	g.logFailedJobs(jobs)
	return problems, dnferr.New(dnferr.NoSolution, "solver reported %d problem(s)", problems)
}

// logFailedJobs traces the staged jobs that went into a failed solve, so
// DescribeProblem output has context to go with it.
func (g *Goal) logFailedJobs(jobs []solver.Job) {
	logger := g.sack.Logger()
	for _, j := range jobs {
		logger.Debugln("job", j.Flags, "on", g.sack.Pool().NEVRA(j.Operand))
	}
}

func hasDistupgrade(jobs []stagedJob) bool {
	for _, j := range jobs {
		if j.flags&solver.JobDistupgrade != 0 {
			return true
		}
	}
	return false
}

func (g *Goal) protectedRemovals() []pool.ID {
	if g.protected.Empty() {
		return nil
	}

	var removed []pool.ID
	for _, step := range g.steps {
		if step.Type != solver.StepErase && step.Type != solver.StepObsoletes {
			continue
		}
		id := step.Package
		if step.Type == solver.StepObsoletes {
			id = step.Obsoleted
		}
		if g.protected.Has(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

// enforceInstallOnlyLimit walks each install-only name; if the number of
// kept-or-installed providers exceeds the limit, it sorts providers with
// the running kernel (and anything depending on it) pinned to the front,
// descending EVR otherwise, keeps the first limit of them, and erases
// the remainder before a single re-solve with allow-uninstall widened.
func (g *Goal) enforceInstallOnlyLimit(flags RunFlag) error {
	limit := g.sack.InstallOnlyLimit()
	if limit <= 0 {
		return nil
	}

	p := g.sack.Pool()
	kernel, hasKernel := g.sack.RunningKernel()

	overflowed := false

	for name := range g.multiversionNames {
		providers := g.providersKeptOrInstalled(name)
		if len(providers) <= limit {
			continue
		}

		overflowed = true

		// Packages already in the protected set are never staged for
		// erasure here — the running kernel's protection comes from
		// that set, not from this sort. The sort itself only governs
		// which of the *unprotected* overflow is kept vs erased.
		var protectedKept, rest []pool.ID
		for _, id := range providers {
			if g.protected.Has(id) {
				protectedKept = append(protectedKept, id)
			} else {
				rest = append(rest, id)
			}
		}

		sort.Slice(rest, func(i, j int) bool {
			pi, pj := rest[i], rest[j]

			iKernel := hasKernel && (pi == kernel || canDependOn(p, pi, kernel))
			jKernel := hasKernel && (pj == kernel || canDependOn(p, pj, kernel))
			if iKernel != jKernel {
				return iKernel
			}

			return p.EVRCmp(p.EVR(pi).String(), p.EVR(pj).String()) > 0
		})

		keepBudget := limit - len(protectedKept)
		if keepBudget < 0 {
			keepBudget = 0
		}
		if keepBudget >= len(rest) {
			continue
		}

		for _, kept := range rest[:keepBudget] {
			g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall, operand: kept})
		}
		for _, kept := range protectedKept {
			g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobInstall, operand: kept})
		}
		for _, doomed := range rest[keepBudget:] {
			g.staging = append(g.staging, stagedJob{flags: solver.JobSolvable | solver.JobErase, operand: doomed})
		}
	}

	if !overflowed {
		return nil
	}

	installed := installedIDs(p)
	g.sv = g.newSolver(installed)
	g.sv.SetFlag(solver.FlagAllowVendorChange, true)
	g.sv.SetFlag(solver.FlagBestObeyPolicy, true)

	jobs := g.buildJobs(flags | RunAllowUninstall)

	problems, err := g.sv.Solve(jobs)
	if err != nil {
		return dnferr.Wrap(dnferr.InternalError, err, "re-solve after install-only-limit failed")
	}
	if problems > 0 {
		g.problems = problems
		return dnferr.New(dnferr.NoSolution, "install-only-limit re-solve reported %d problem(s)", problems)
	}

	g.steps = g.sv.CreateTransaction()
	return nil
}

// providersKeptOrInstalled returns every id providing name that the last
// solve would leave present: packages the solve staged (installs,
// upgrades, reinstalls, downgrades — anything but an erase step), plus
// already-installed packages the solve left untouched. A naive solver
// only emits steps for packages whose state changes, so an unaffected
// installed provider never appears in g.steps at all; without folding
// those back in, an install-only name's provider count would silently
// exclude every package the solve didn't have to touch.
func (g *Goal) providersKeptOrInstalled(name string) []pool.ID {
	p := g.sack.Pool()

	erased := make(map[pool.ID]bool)
	seen := make(map[pool.ID]bool)
	var out []pool.ID

	for _, step := range g.steps {
		if step.Type == solver.StepErase {
			erased[step.Package] = true
			continue
		}
		if p.Name(step.Package) == name && !seen[step.Package] {
			seen[step.Package] = true
			out = append(out, step.Package)
		}
	}

	for _, id := range installedIDs(p) {
		if erased[id] || seen[id] {
			continue
		}
		if p.Name(id) == name {
			seen[id] = true
			out = append(out, id)
		}
	}

	return out
}

// canDependOn reports whether any of a's requires can be provided by b.
func canDependOn(p pool.Pool, a, b pool.ID) bool {
	for _, req := range p.Reldeps(a, pool.AttrRequires) {
		for _, provider := range p.WhatProvides(req) {
			if provider == b {
				return true
			}
		}
	}
	return false
}

// CountProblems returns the problem count from the last Run: the
// solver's own count, plus one more if the failure was a protected
// removal.
func (g *Goal) CountProblems() int {
	return g.problems
}

// DescribeProblem renders problem i; the synthetic protected-removal
// problem (index == solver's own count) names the protected packages
// that would have been removed.
func (g *Goal) DescribeProblem(i int) string {
	if g.sv == nil {
		return ""
	}
	if len(g.protErr) > 0 && i == g.problems-1 {
		names := make([]string, len(g.protErr))
		for idx, id := range g.protErr {
			names[idx] = g.sack.Pool().NEVRA(id)
		}
		return fmt.Sprintf("would remove protected: %v", names)
	}
	return g.sv.DescribeProblem(i)
}

// Reason classifies why pkg is present in the transaction: a job-driven
// decision is USER, a cleandeps erase is CLEAN, a weak-dep pull is
// WEAKDEP, anything else is DEP.
func (g *Goal) Reason(pkg pool.ID) Reason {
	if g.sv == nil {
		return ReasonDep
	}

	switch g.sv.RuleClass(pkg) {
	case solver.RuleJob:
		return ReasonUser
	case solver.RuleCleandepsErase:
		return ReasonClean
	case solver.RuleWeakdep:
		return ReasonWeakdep
	default:
		return ReasonDep
	}
}

func (g *Goal) listByType(t solver.StepType) []pool.ID {
	var out []pool.ID
	for _, step := range g.steps {
		if step.Type == t {
			out = append(out, step.Package)
		}
	}
	return out
}

func (g *Goal) ListInstalls() []pool.ID  { return g.listByType(solver.StepInstall) }
func (g *Goal) ListErasures() []pool.ID  { return g.listByType(solver.StepErase) }
func (g *Goal) ListReinstalls() []pool.ID { return g.listByType(solver.StepReinstall) }
func (g *Goal) ListUpgrades() []pool.ID  { return g.listByType(solver.StepUpgrade) }
func (g *Goal) ListDowngrades() []pool.ID { return g.listByType(solver.StepDowngrade) }

// ListObsoleted returns every package obsoleted by an install/upgrade/
// downgrade step.
func (g *Goal) ListObsoleted() []pool.ID {
	var out []pool.ID
	for _, step := range g.steps {
		if step.Obsoleted != pool.NoID {
			out = append(out, step.Obsoleted)
		}
	}
	return out
}

// ListObsoletedByPackage returns the ids obsoleted specifically by pkg's
// step, if pkg has one.
func (g *Goal) ListObsoletedByPackage(pkg pool.ID) []pool.ID {
	var out []pool.ID
	for _, step := range g.steps {
		if step.Package == pkg && step.Obsoleted != pool.NoID {
			out = append(out, step.Obsoleted)
		}
	}
	return out
}

// ListUnneeded returns installed packages the solve determined are no
// longer required by anything (a subset of erasures without an explicit
// staged job); the naive solver does not compute this distinction, so it
// is derived here as erasures whose reason is anything other than user
// (clean, weakdep or dep).
func (g *Goal) ListUnneeded() []pool.ID {
	var out []pool.ID
	for _, id := range g.ListErasures() {
		if g.Reason(id) != ReasonUser {
			out = append(out, id)
		}
	}
	return out
}
