// Package pool defines the capability set the core (sack, query, goal)
// needs from the solvable pool: uniform access to solvables and their
// typed attributes. The pool itself — parsing repository metadata into
// solvables, interning strings, building provides indices — is an
// external collaborator (in production, a cgo binding over libsolv, the
// way a Go package might wrap libalpm); this package only pins down the
// interface the core is written against, plus the value types (ID,
// Attr, EVR triple) that cross the boundary.
package pool

import "context"

// ID is a dense positive integer identifying a solvable, stable for the
// lifetime of its owning pool. ID 0 means "none"; ID 1 is reserved for
// the system solvable.
type ID uint32

// NoID is the sentinel "no solvable" id.
const NoID ID = 0

// SystemID is the reserved id of the pool's own bookkeeping solvable.
const SystemID ID = 1

// Attr names a typed attribute of a solvable. String-valued attrs are read
// through Pool.String; array-valued ones (Provides, Requires, ...) through
// Pool.Reldeps.
type Attr int

const (
	AttrName Attr = iota
	AttrArch
	AttrEVR
	AttrSummary
	AttrDescription
	AttrURL
	AttrLocation
	AttrSourceRPM
	AttrFile
	AttrProvides
	AttrRequires
	AttrConflicts
	AttrObsoletes
	AttrRecommends
	AttrSuggests
	AttrEnhances
	AttrSupplements
	AttrAdvisoryCollection
)

// EVR is the epoch/version/release triple as the pool sees it: epoch -1
// means "absent", never confused with an explicit epoch of 0.
type EVR struct {
	Epoch   int
	Version string
	Release string
}

// String renders "[e:]v-r", omitting the epoch when absent (-1) and the
// release when empty.
func (e EVR) String() string {
	s := ""
	if e.Epoch >= 0 {
		s += itoa(e.Epoch) + ":"
	}
	s += e.Version
	if e.Release != "" {
		s += "-" + e.Release
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Repo describes a metadata source. Solvables belong to exactly one repo;
// the distinguished name SystemRepo holds installed packages.
type Repo struct {
	Name      string
	Enabled   bool
	GPGCheck  bool
	Cost      int
	Installed bool
}

// SystemRepo is the distinguished repository holding installed packages.
const SystemRepo = "@System"

// IterMode names the string-matching modes (exact, substring, glob) of a
// pool data iterator; no method of Pool takes one.
type IterMode int

const (
	IterExact IterMode = iota
	IterSubstr
	IterGlob
)

// Pool is the capability set the core requires of the solvable pool. A
// production implementation binds these to libsolv (pool_str2id,
// dataiterator_init, pool_evrcmp_str, what_upgrades/what_downgrades,
// FOR_PROVIDES, ...); pkg/pool/memory provides a pure-Go reference
// implementation used by the core's own tests.
type Pool interface {
	// AllPackages returns every package-kind solvable id known to the
	// pool (installed and available), corresponding to FOR_PKG_SOLVABLES.
	AllPackages() []ID

	// Repo returns the repository a solvable belongs to.
	Repo(id ID) Repo

	// Repos lists all loaded repositories, including @System when present.
	Repos() []Repo

	// Name, Arch, EVR return a solvable's core identity fields.
	Name(id ID) string
	Arch(id ID) string
	EVR(id ID) EVR

	// String returns a scalar string attribute (summary, description,
	// url, location, sourcerpm) or "" if unset.
	String(id ID, attr Attr) string

	// Files returns the solvable's file list (paths only).
	Files(id ID) []string

	// Reldeps returns the reldep array for a relational attribute
	// (Provides, Requires, Conflicts, Obsoletes, Recommends, Suggests,
	// Enhances, Supplements).
	Reldeps(id ID, attr Attr) []Reldep

	// WhatProvides walks the provides index (FOR_PROVIDES) and returns
	// every solvable id providing a name that satisfies dep.
	WhatProvides(dep Reldep) []ID

	// WhatUpgrades/WhatDowngrades mirror libsolv's what_upgrades /
	// what_downgrades: given a candidate id, return the installed id (if
	// any) it would upgrade or downgrade.
	WhatUpgrades(candidate ID) ID
	WhatDowngrades(candidate ID) ID

	// EVRCmp is the pool's own EVR comparator (pool_evrcmp_str), used so
	// callers never need to reach into a separate evr package when all
	// they have is two ids or two raw strings already resolved by the
	// pool.
	EVRCmp(a, b string) int

	// AdvisoryPackages iterates UPDATE_COLLECTION attributes on
	// advisories matching pred, returning the NEVRAs of packages named
	// by matching collections.
	AdvisoryPackages(ctx context.Context, pred AdvisoryPredicate) ([]string, error)

	// NEVRA renders the canonical name-epoch:version-release.arch string.
	NEVRA(id ID) string

	// ObsoletesUseProvides reports whether OBSOLETES-as-packageset
	// filtering should walk the provides index (POOL_FLAG_OBSOLETEUSES-
	// PROVIDES on, the default) or require an exact name+evr match
	// against the target set instead (flag off).
	ObsoletesUseProvides() bool
}

// Reldep is the pool-facing mirror of pkg/reldep.Reldep, kept separate so
// this package does not have to import the parsing package for its
// interface surface; sack and query convert between the two at the edges.
type Reldep struct {
	Name string
	Op   ReldepOp
	EVR  string
}

// ReldepOp mirrors cmp.Flag's GT/LT/EQ/NEQ subset used by version
// constraints; kept as its own tiny type so this package has no
// dependency on pkg/cmp.
type ReldepOp uint8

const (
	OpNone ReldepOp = 0
	OpEQ   ReldepOp = 1 << 0
	OpGT   ReldepOp = 1 << 1
	OpLT   ReldepOp = 1 << 2
	OpNEQ  ReldepOp = 1 << 3
)

// AdvisoryPredicate selects advisories by id, bug, CVE, kind or severity;
// zero-value fields are wildcards.
type AdvisoryPredicate struct {
	ID       string
	Bug      string
	CVE      string
	Kind     string
	Severity string
}
