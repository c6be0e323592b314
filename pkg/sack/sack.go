// Package sack owns the solvable pool, the loaded repositories, and the
// exclude/include policy a query or goal evaluates against. It is the
// single stateful handle a host constructs once per root/arch
// combination, and every other package in this module is built against
// it.
package sack

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/solvable-go/dnfcore/pkg/dnferr"
	"github.com/solvable-go/dnfcore/pkg/log"
	"github.com/solvable-go/dnfcore/pkg/packageset"
	"github.com/solvable-go/dnfcore/pkg/pool"
)

// knownArches is the recognised-architecture allowlist new() validates
// against, mirroring the small fixed set a real libsolv pool accepts.
var knownArches = map[string]bool{
	"noarch": true, "x86_64": true, "i686": true, "aarch64": true,
	"armv7hl": true, "ppc64le": true, "s390x": true,
}

// Options are the named constructor parameters external interfaces
// name: cachedir, arch, rootdir, plus the host hooks that let it wrap
// solvable ids in a richer package type.
type Options struct {
	Cachedir     string
	Arch         string
	Rootdir      string
	MakeCacheDir bool
	Logfile      string
	// WrapPackage, if set, is invoked whenever the sack hands a package
	// id across the API boundary, letting the host wrap it in its own
	// record type. Left nil, callers work with pool.ID directly.
	WrapPackage func(pool.ID) any
}

// Sack owns the pool, the repository list, and the exclude/include/
// install-only policy every query and goal is evaluated against.
type Sack struct {
	pool pool.Pool
	log  *log.Logger
	opts Options

	excludes *packageset.Set
	includes *packageset.Set

	considered      *packageset.Set
	consideredStale bool

	installOnlyNames []string
	installOnlyLimit int

	runningKernel    pool.ID
	runningKernelSet bool
}

// New validates options and constructs a Sack bound to p. The pool's
// own construction (repo metadata parsing, string interning) is an
// external collaborator's concern; New only validates the recognised
// options and prepares the cache directory.
func New(p pool.Pool, opts Options) (*Sack, error) {
	if opts.Arch == "" || !knownArches[opts.Arch] {
		return nil, dnferr.New(dnferr.InvalidArchitecture, "unrecognised architecture %q", opts.Arch)
	}

	if opts.MakeCacheDir && opts.Cachedir != "" {
		if err := os.MkdirAll(opts.Cachedir, 0o755); err != nil {
			return nil, dnferr.Wrap(dnferr.FileInvalid, err, "could not create cache dir %q", opts.Cachedir)
		}
	}

	var logger *log.Logger
	if opts.Logfile != "" {
		f, err := os.OpenFile(opts.Logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, dnferr.Wrap(dnferr.FileInvalid, err, "could not open logfile %q", opts.Logfile)
		}
		logger = log.New(f, false, "sack")
	} else {
		logger = log.New(os.Stderr, false, "sack")
	}

	return &Sack{
		pool:            p,
		log:             logger,
		opts:            opts,
		excludes:        packageset.New(),
		includes:        packageset.New(),
		consideredStale: true,
	}, nil
}

// Pool returns the underlying pool, for packages in this module that need
// raw attribute access (query, selector, subject).
func (s *Sack) Pool() pool.Pool { return s.pool }

// Logger returns this sack's injected log sink; there is no process-wide
// default, every sack is its own root.
func (s *Sack) Logger() *log.Logger { return s.log }

// WrapPackage applies the host's packaging strategy to id, if one was
// configured; otherwise it returns id unchanged as an any.
func (s *Sack) WrapPackage(id pool.ID) any {
	if s.opts.WrapPackage != nil {
		return s.opts.WrapPackage(id)
	}
	return id
}

// SetInstallOnly records the install-only package names (kernels and
// similar packages kept in N concurrent versions rather than upgraded
// in place).
func (s *Sack) SetInstallOnly(names []string) {
	s.installOnlyNames = append([]string(nil), names...)
}

// InstallOnlyNames returns the configured install-only name list.
func (s *Sack) InstallOnlyNames() []string {
	return append([]string(nil), s.installOnlyNames...)
}

// SetInstallOnlyLimit sets the max concurrent installed versions for an
// install-only name; 0 disables the policy.
func (s *Sack) SetInstallOnlyLimit(n int) {
	s.installOnlyLimit = n
}

// InstallOnlyLimit returns the configured limit, or 0 if disabled.
func (s *Sack) InstallOnlyLimit() int {
	return s.installOnlyLimit
}

// AddExcludes accumulates set into the sack's excludes policy and
// invalidates the considered cache.
func (s *Sack) AddExcludes(set *packageset.Set) {
	s.excludes.UnionInPlace(set)
	s.consideredStale = true
}

// AddIncludes accumulates set into the sack's includes policy and
// invalidates the considered cache.
func (s *Sack) AddIncludes(set *packageset.Set) {
	s.includes.UnionInPlace(set)
	s.consideredStale = true
}

// Excludes returns the current excludes packageset.
func (s *Sack) Excludes() *packageset.Set { return s.excludes.Clone() }

// Includes returns the current includes packageset.
func (s *Sack) Includes() *packageset.Set { return s.includes.Clone() }

// RecomputeConsidered lazily rebuilds the considered bitmap:
// considered = (all − excludes) ∩ (includes-or-all). Idempotent: a call
// with no pending invalidation is a no-op.
func (s *Sack) RecomputeConsidered() *packageset.Set {
	if !s.consideredStale && s.considered != nil {
		return s.considered
	}

	all := packageset.FromIDs(s.pool.AllPackages()...)

	considered := all.Clone()
	if !s.excludes.Empty() {
		considered.SubtractInPlace(s.excludes)
	}
	if !s.includes.Empty() {
		considered.IntersectionInPlace(s.includes)
	}

	s.considered = considered
	s.consideredStale = false

	return s.considered
}

// LoadSystemRepo marks installed-package state as (re)loaded: an empty
// repoName defaults to pool.SystemRepo, the considered cache is
// invalidated so subsequent queries recompute it, and the call is logged.
// It parses no metadata and does not change which repository the pool
// treats as installed.
func (s *Sack) LoadSystemRepo(repoName string) error {
	if repoName == "" {
		repoName = pool.SystemRepo
	}
	s.consideredStale = true
	s.log.Debugln("loaded system repo", repoName)
	return nil
}

// LoadRepoOptions are the recognised named options for LoadRepo.
type LoadRepoOptions struct {
	BuildCache     bool
	LoadFilelists  bool
	LoadPresto     bool
	LoadUpdateinfo bool
}

// LoadRepo marks a repository's remote metadata as (re)loaded: it
// invalidates the considered cache and logs the call. It fetches and
// parses no metadata itself; the pool already holds the repository's
// solvables. Cooperative cancellation is not supported at this layer —
// ctx is checked only at entry.
func (s *Sack) LoadRepo(ctx context.Context, repoName string, opts LoadRepoOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.consideredStale = true
	s.log.Debugln("loaded repo", repoName, "filelists:", opts.LoadFilelists, "updateinfo:", opts.LoadUpdateinfo)
	return nil
}

// EVRCmp is the sack's total order over EVR strings, delegated to the
// pool (pool_evrcmp_str in the external interface).
func (s *Sack) EVRCmp(a, b string) int {
	return s.pool.EVRCmp(a, b)
}

// Knowledge is the result of Knows: whether a name is known as a package
// name, as a provider only, or not at all.
type Knowledge int

const (
	Unknown Knowledge = iota
	KnownAsPackage
	KnownAsProviderOnly
)

// KnowsOptions mirrors libdnf's hy_sack_knows flags: NameOnly skips the
// version argument entirely, ICase folds case on the name comparison, and
// Glob treats name as a shell glob pattern instead of an exact string.
type KnowsOptions struct {
	NameOnly bool
	ICase    bool
	Glob     bool
}

func matchesName(candidate, name string, opts KnowsOptions) bool {
	if opts.Glob {
		if opts.ICase {
			candidate, name = strings.ToLower(candidate), strings.ToLower(name)
		}
		ok, err := path.Match(name, candidate)
		return err == nil && ok
	}
	if opts.ICase {
		return strings.EqualFold(candidate, name)
	}
	return candidate == name
}

// Knows is a cheap existence probe over the pool: does any considered
// solvable have this name (optionally at this version)? Equivalent to
// KnowsWithOptions(name, version, KnowsOptions{}).
func (s *Sack) Knows(name, version string) Knowledge {
	return s.KnowsWithOptions(name, version, KnowsOptions{})
}

// KnowsWithOptions is Knows with libdnf's NAME_ONLY/ICASE/GLOB flags.
func (s *Sack) KnowsWithOptions(name, version string, opts KnowsOptions) Knowledge {
	considered := s.RecomputeConsidered()

	asPackage := false
	asProvider := false

	considered.Each(func(id pool.ID) bool {
		if matchesName(s.pool.Name(id), name, opts) {
			if opts.NameOnly || version == "" || s.pool.EVR(id).Version == version {
				asPackage = true
				return false
			}
		}
		return true
	})

	if asPackage {
		return KnownAsPackage
	}

	for _, id := range s.pool.AllPackages() {
		for _, prov := range s.pool.Reldeps(id, pool.AttrProvides) {
			if matchesName(prov.Name, name, opts) {
				asProvider = true
				break
			}
		}
		if asProvider {
			break
		}
	}

	if asProvider {
		return KnownAsProviderOnly
	}

	return Unknown
}

// RunningKernel heuristically identifies the currently-booted kernel
// package: the installed "kernel" package with the highest EVR. Cached
// after first lookup.
func (s *Sack) RunningKernel() (pool.ID, bool) {
	if s.runningKernelSet {
		return s.runningKernel, s.runningKernel != pool.NoID
	}

	var best pool.ID
	for _, id := range s.pool.AllPackages() {
		if s.pool.Repo(id).Name != pool.SystemRepo {
			continue
		}
		if s.pool.Name(id) != "kernel" {
			continue
		}
		if best == pool.NoID || s.pool.EVRCmp(s.pool.EVR(id).String(), s.pool.EVR(best).String()) > 0 {
			best = id
		}
	}

	s.runningKernel = best
	s.runningKernelSet = true

	return best, best != pool.NoID
}
