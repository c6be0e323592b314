// Package solver defines the capability set the goal engine needs from a
// SAT-style dependency solver: job submission, solving, and enumeration
// of the resulting transaction's steps. Production solving is an
// external collaborator (in libdnf, libsolv); pkg/solver/naive is a
// pure-Go reference implementation the goal's own tests are built
// against.
package solver

import "github.com/solvable-go/dnfcore/pkg/pool"

// JobFlag mirrors the solver job flag bits the goal composes when it
// stages an operation (SOLVER_SOLVABLE, SOLVER_INSTALL, ...).
type JobFlag uint32

const (
	JobSolvable JobFlag = 1 << iota
	JobSolvableAll
	JobSolvableProvides
	JobInstall
	JobErase
	JobUpdate
	JobDistupgrade
	JobVerify
	JobWeak
	JobCleandeps
	JobForcebest
	JobMultiversion
	JobAllowUninstall
)

// Job is one entry of the queue handed to Solve: a flag mask plus the
// operand id it targets (a solvable id, or 0 for SOLVABLE_ALL jobs).
type Job struct {
	Flags   JobFlag
	Operand pool.ID
}

// SolverFlag mirrors the boolean flags set on the solver before solving.
type SolverFlag int

const (
	FlagAllowVendorChange SolverFlag = iota
	FlagKeepOrphans
	FlagBestObeyPolicy
	FlagYumObsoletes
	FlagIgnoreRecommended
	FlagAllowUninstall
)

// StepType names the kind of a transaction step.
type StepType int

const (
	StepInstall StepType = iota
	StepErase
	StepObsoletes
	StepUpgrade
	StepDowngrade
	StepReinstall
)

// Step is one entry of a solved transaction.
type Step struct {
	Type       StepType
	Package    pool.ID
	Obsoleted  pool.ID // for StepObsoletes/StepUpgrade/StepDowngrade: the package displaced
	IsReinstall bool
}

// ProblemReason names why a job could not be satisfied.
type ProblemReason int

// Solver is the capability set the goal drives: flag configuration,
// solving a job queue, and inspecting the resulting transaction or its
// problems.
type Solver interface {
	SetFlag(flag SolverFlag, value bool)

	// Solve attempts to satisfy jobs. It returns the number of problems
	// (0 on success); on success CreateTransaction returns the steps.
	Solve(jobs []Job) (problemCount int, err error)

	// CreateTransaction enumerates the solved transaction's steps. Only
	// valid after a zero-problem Solve.
	CreateTransaction() []Step

	// DescribeProblem renders problem i (0-indexed, i < problemCount) as
	// a human-readable string.
	DescribeProblem(i int) string

	// RuleClass reports why a package's install/erase decision was made,
	// for Goal.Reason's dispatch.
	RuleClass(id pool.ID) RuleClass
}

// RuleClass is the solver's classification of the rule responsible for a
// package's presence in the transaction.
type RuleClass int

const (
	RuleUnknown RuleClass = iota
	RuleJob
	RuleCleandepsErase
	RuleWeakdep
	RuleDep
)
