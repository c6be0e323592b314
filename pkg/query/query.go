// Package query implements the lazy, composable filter pipeline queries
// are built from: a Query stages filters and modifiers, then apply()
// evaluates them into a result packageset in one pass. The staging style
// follows a method-chaining db-executor pattern, generalized from "list
// installed packages matching X" to the full per-keyname dispatch table.
package query

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/dnferr"
	"github.com/solvable-go/dnfcore/pkg/packageset"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/sack"
	"github.com/solvable-go/dnfcore/pkg/stringset"
)

// Keyname names the solvable attribute (or pseudo-attribute) a filter
// matches against.
type Keyname int

const (
	NAME Keyname = iota
	ARCH
	EVR
	VERSION
	RELEASE
	SUMMARY
	DESCRIPTION
	URL
	FILE
	LOCATION
	SOURCERPM
	EPOCH
	NEVRA
	REPONAME
	PKG
	OBSOLETES
	PROVIDES
	REQUIRES
	CONFLICTS
	RECOMMENDS
	SUGGESTS
	ENHANCES
	SUPPLEMENTS
	ADVISORY
	ADVISORY_BUG
	ADVISORY_CVE
	ADVISORY_KIND
	ADVISORY_SEVERITY
	ALL
)

// reldepAttr maps a reldep keyname to its pool.Attr, for keynames that
// are plain relational lookups rather than the packageset-shaped
// OBSOLETES/PROVIDES special cases.
var reldepAttr = map[Keyname]pool.Attr{
	REQUIRES:    pool.AttrRequires,
	CONFLICTS:   pool.AttrConflicts,
	RECOMMENDS:  pool.AttrRecommends,
	SUGGESTS:    pool.AttrSuggests,
	ENHANCES:    pool.AttrEnhances,
	SUPPLEMENTS: pool.AttrSupplements,
	OBSOLETES:   pool.AttrObsoletes,
}

// matchKind is the filter's match_type discriminant; all matches of a
// single filter share one kind, enforced by which Filter* constructor
// built it.
type matchKind int

const (
	matchString matchKind = iota
	matchNumber
	matchReldep
	matchPackageset
)

type filter struct {
	keyname   Keyname
	cmpType   cmp.Flag
	matchKind matchKind
	strings   []string
	numbers   []int
	reldeps   []pool.Reldep
	set       *packageset.Set
}

// Flags are Query construction-time flags.
type Flags int

const (
	None Flags = 0
	// IgnoreExcludes bypasses the sack's excludes/includes policy for
	// this query's apply().
	IgnoreExcludes Flags = 1 << iota
)

// Query owns a reference to its sack, the staged filter list, modifier
// flags, and the materialised result after apply().
type Query struct {
	sack  *sack.Sack
	flags Flags

	filters []filter

	latest        bool
	latestPerArch bool
	downgrades    bool
	downgradable  bool
	updates       bool
	updatable     bool

	applied bool
	result  *packageset.Set
}

// Create returns a new, empty Query over s.
func Create(s *sack.Sack, flags Flags) *Query {
	return &Query{sack: s, flags: flags, result: packageset.New()}
}

func (q *Query) invalidate() {
	q.applied = false
}

// FilterStrings appends a string-shaped filter (NAME, ARCH, SUMMARY,
// DESCRIPTION, URL, FILE, LOCATION, SOURCERPM, NEVRA, EVR, VERSION,
// RELEASE, REPONAME, ADVISORY*).
func (q *Query) FilterStrings(keyname Keyname, cmpType cmp.Flag, values ...string) error {
	if err := validateStringFilter(keyname, cmpType); err != nil {
		return err
	}
	q.filters = append(q.filters, filter{keyname: keyname, cmpType: cmpType, matchKind: matchString, strings: values})
	q.invalidate()
	return nil
}

// FilterNums appends a numeric-shaped filter (EPOCH, or ALL with the -1
// sentinel).
func (q *Query) FilterNums(keyname Keyname, cmpType cmp.Flag, values ...int) error {
	switch keyname {
	case EPOCH:
		if !validComparator(cmpType, cmp.EQ|cmp.GT|cmp.LT) {
			return dnferr.New(dnferr.BadQuery, "invalid cmp_type for EPOCH")
		}
	case ALL:
		if cmpType != cmp.EQ || len(values) != 1 || values[0] != -1 {
			return dnferr.New(dnferr.BadQuery, "ALL filter requires EQ with sentinel -1")
		}
	default:
		return dnferr.New(dnferr.BadQuery, "keyname does not accept a numeric filter")
	}

	q.filters = append(q.filters, filter{keyname: keyname, cmpType: cmpType, matchKind: matchNumber, numbers: values})
	q.invalidate()
	return nil
}

// FilterReldeps appends a reldep-shaped filter (REQUIRES, PROVIDES,
// CONFLICTS, OBSOLETES, ENHANCES, RECOMMENDS, SUGGESTS, SUPPLEMENTS).
func (q *Query) FilterReldeps(keyname Keyname, cmpType cmp.Flag, values ...pool.Reldep) error {
	if _, ok := reldepAttr[keyname]; !ok && keyname != PROVIDES {
		return dnferr.New(dnferr.BadQuery, "keyname does not accept a reldep filter")
	}
	if !validComparator(cmpType, cmp.EQ) {
		return dnferr.New(dnferr.BadQuery, "reldep filters accept only EQ")
	}

	q.filters = append(q.filters, filter{keyname: keyname, cmpType: cmpType, matchKind: matchReldep, reldeps: values})
	q.invalidate()
	return nil
}

// FilterReldepGlob appends a reldep-shaped filter from a glob pattern: the
// pattern is matched against every name known to the pool's provides
// index, and each match becomes a bare (no version constraint) reldep in
// an OR-of-matches list. This is the "string turns into a reldep list"
// value shape reldep keynames accept under GLOB, alongside the literal
// single-reldep EQ form FilterReldeps handles.
func (q *Query) FilterReldepGlob(keyname Keyname, pattern string) error {
	if _, ok := reldepAttr[keyname]; !ok && keyname != PROVIDES {
		return dnferr.New(dnferr.BadQuery, "keyname does not accept a reldep filter")
	}

	q.filters = append(q.filters, filter{
		keyname:   keyname,
		cmpType:   cmp.GLOB,
		matchKind: matchReldep,
		reldeps:   globProvideNames(q.sack.Pool(), pattern),
	})
	q.invalidate()
	return nil
}

// globProvideNames walks every package's declared Provides and returns a
// deduplicated, bare (Op-less) reldep per distinct provided name matching
// pattern.
func globProvideNames(p pool.Pool, pattern string) []pool.Reldep {
	seen := make(map[string]bool)
	var out []pool.Reldep
	for _, id := range p.AllPackages() {
		for _, dep := range p.Reldeps(id, pool.AttrProvides) {
			if seen[dep.Name] {
				continue
			}
			if ok, _ := path.Match(pattern, dep.Name); ok {
				seen[dep.Name] = true
				out = append(out, pool.Reldep{Name: dep.Name})
			}
		}
	}
	return out
}

// FilterProvides is sugar over FilterReldeps(PROVIDES, EQ, dep): most
// callers only ever want "packages providing this one reldep".
func (q *Query) FilterProvides(dep pool.Reldep) error {
	return q.FilterReldeps(PROVIDES, cmp.EQ, dep)
}

// FilterPackageset appends a packageset-shaped filter (PKG, or OBSOLETES
// used as a reverse-obsoletes lookup against a target set).
func (q *Query) FilterPackageset(keyname Keyname, cmpType cmp.Flag, set *packageset.Set) error {
	if keyname != PKG && keyname != OBSOLETES {
		return dnferr.New(dnferr.BadQuery, "keyname does not accept a packageset filter")
	}
	if !validComparator(cmpType, cmp.EQ|cmp.NEQ) {
		return dnferr.New(dnferr.BadQuery, "packageset filters accept only EQ|NEQ")
	}

	q.filters = append(q.filters, filter{keyname: keyname, cmpType: cmpType, matchKind: matchPackageset, set: set})
	q.invalidate()
	return nil
}

// FilterEmpty forces the result to empty regardless of any other staged
// filter.
func (q *Query) FilterEmpty() {
	q.filters = append(q.filters, filter{keyname: ALL, cmpType: cmp.EQ, matchKind: matchNumber, numbers: []int{-1}})
	q.invalidate()
}

func validComparator(got, allowed cmp.Flag) bool {
	stripped := got &^ (cmp.ICASE | cmp.NOT)
	return stripped != 0 && stripped&^allowed == 0
}

func validateStringFilter(keyname Keyname, cmpType cmp.Flag) error {
	switch keyname {
	case LOCATION, SOURCERPM:
		if !validComparator(cmpType, cmp.EQ) {
			return dnferr.New(dnferr.BadQuery, "LOCATION/SOURCERPM accept only EQ")
		}
	case ADVISORY, ADVISORY_BUG, ADVISORY_CVE, ADVISORY_KIND, ADVISORY_SEVERITY:
		if !validComparator(cmpType, cmp.EQ) {
			return dnferr.New(dnferr.BadQuery, "advisory filters accept only EQ")
		}
	case NEVRA:
		if !validComparator(cmpType, cmp.EQ|cmp.GLOB) {
			return dnferr.New(dnferr.BadQuery, "NEVRA accepts EQ|GLOB")
		}
	case EVR:
		if !validComparator(cmpType, cmp.EQ|cmp.GT|cmp.LT) {
			return dnferr.New(dnferr.BadQuery, "EVR accepts EQ|GT|LT")
		}
	case VERSION, RELEASE:
		if !validComparator(cmpType, cmp.EQ|cmp.GT|cmp.LT|cmp.GLOB) {
			return dnferr.New(dnferr.BadQuery, "VERSION/RELEASE accept EQ|GT|LT|GLOB")
		}
	case NAME, ARCH, SUMMARY, DESCRIPTION, URL, FILE, REPONAME:
		if !validComparator(cmpType, cmp.EQ|cmp.SUBSTR|cmp.GLOB) {
			return dnferr.New(dnferr.BadQuery, "string filter accepts EQ|SUBSTR|GLOB")
		}
	default:
		return dnferr.New(dnferr.BadQuery, "keyname does not accept a string filter")
	}
	return nil
}

// FilterLatest sets (or clears) the latest modifier; setting it clears
// latest-per-arch, keeping the pair mutually consistent.
func (q *Query) FilterLatest(on bool) {
	q.latest = on
	if on {
		q.latestPerArch = false
	}
	q.invalidate()
}

// FilterLatestPerArch sets (or clears) the latest-per-arch modifier;
// setting it clears plain latest.
func (q *Query) FilterLatestPerArch(on bool) {
	q.latestPerArch = on
	if on {
		q.latest = false
	}
	q.invalidate()
}

func (q *Query) FilterUpgrades(on bool)    { q.updates = on; q.invalidate() }
func (q *Query) FilterUpgradable(on bool)  { q.updatable = on; q.invalidate() }
func (q *Query) FilterDowngrades(on bool)  { q.downgrades = on; q.invalidate() }
func (q *Query) FilterDowngradable(on bool) { q.downgradable = on; q.invalidate() }

// Apply evaluates all staged filters into the result bitmap. Idempotent:
// calling it again with no new filters staged is a no-op. Clears the
// staged filter list afterward.
func (q *Query) Apply() error {
	if q.applied {
		return nil
	}

	p := q.sack.Pool()

	var result *packageset.Set
	if q.flags&IgnoreExcludes != 0 {
		result = packageset.FromIDs(p.AllPackages()...)
	} else {
		result = q.sack.RecomputeConsidered().Clone()
	}

	for _, f := range q.filters {
		m, err := evalFilter(p, f)
		if err != nil {
			return err
		}

		if f.cmpType.Has(cmp.NOT) {
			result.SubtractInPlace(m)
		} else {
			result.IntersectionInPlace(m)
		}
	}

	applyModifiers(p, result, q.latest, q.latestPerArch, q.downgrades, q.downgradable, q.updates, q.updatable)

	q.result = result
	q.filters = nil
	q.applied = true

	return nil
}

func applyModifiers(p pool.Pool, result *packageset.Set, latest, latestPerArch, downgrades, downgradable, updates, updatable bool) {
	if downgradable {
		keep := packageset.New()
		result.Each(func(id pool.ID) bool {
			if p.Repo(id).Name != pool.SystemRepo {
				return true
			}
			for _, cand := range p.AllPackages() {
				if p.WhatDowngrades(cand) == id {
					keep.Add(id)
					break
				}
			}
			return true
		})
		result.IntersectionInPlace(keep)
	}

	if downgrades {
		keep := packageset.New()
		result.Each(func(id pool.ID) bool {
			if p.Repo(id).Name == pool.SystemRepo {
				return true
			}
			if p.WhatDowngrades(id) != pool.NoID {
				keep.Add(id)
			}
			return true
		})
		result.IntersectionInPlace(keep)
	}

	if updatable {
		keep := packageset.New()
		result.Each(func(id pool.ID) bool {
			if p.Repo(id).Name != pool.SystemRepo {
				return true
			}
			for _, cand := range p.AllPackages() {
				if p.WhatUpgrades(cand) == id {
					keep.Add(id)
					break
				}
			}
			return true
		})
		result.IntersectionInPlace(keep)
	}

	if updates {
		keep := packageset.New()
		result.Each(func(id pool.ID) bool {
			if p.Repo(id).Name == pool.SystemRepo {
				return true
			}
			if p.WhatUpgrades(id) != pool.NoID {
				keep.Add(id)
			}
			return true
		})
		result.IntersectionInPlace(keep)
	}

	if latest || latestPerArch {
		keepLatestPerGroup(p, result, latestPerArch)
	}
}

// keepLatestPerGroup partitions result by name (and by (name,arch) when
// perArch), keeping the single highest-EVR solvable per group; within an
// equal-name group, ties are broken by ascending id, keeping the last
// (highest-id) entry after sort.
func keepLatestPerGroup(p pool.Pool, result *packageset.Set, perArch bool) {
	groups := make(map[string][]pool.ID)

	result.Each(func(id pool.ID) bool {
		key := p.Name(id)
		if perArch {
			key += "\x00" + p.Arch(id)
		}
		groups[key] = append(groups[key], id)
		return true
	})

	kept := packageset.New()

	for _, ids := range groups {
		sort.Slice(ids, func(i, j int) bool {
			c := p.EVRCmp(p.EVR(ids[i]).String(), p.EVR(ids[j]).String())
			if c != 0 {
				return c < 0
			}
			return ids[i] < ids[j]
		})
		kept.Add(ids[len(ids)-1])
	}

	result.IntersectionInPlace(kept)
}

func evalFilter(p pool.Pool, f filter) (*packageset.Set, error) {
	switch f.keyname {
	case NAME:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.Name(id) })
	case ARCH:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.Arch(id) })
	case SUMMARY:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.String(id, pool.AttrSummary) })
	case DESCRIPTION:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.String(id, pool.AttrDescription) })
	case URL:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.String(id, pool.AttrURL) })
	case EVR:
		if f.cmpType.Any(cmp.GT | cmp.LT) {
			m := packageset.New()
			for _, id := range p.AllPackages() {
				for _, match := range f.strings {
					if numCmp(f.cmpType, p.EVRCmp(p.EVR(id).String(), match), 0) {
						m.Add(id)
						break
					}
				}
			}
			return m, nil
		}
		return evalStringAttr(p, f, func(id pool.ID) string { return p.EVR(id).String() })
	case FILE:
		return evalFileFilter(p, f)
	case LOCATION:
		return evalExactString(p, f, func(id pool.ID) string { return p.String(id, pool.AttrLocation) })
	case SOURCERPM:
		return evalExactString(p, f, func(id pool.ID) string { return p.String(id, pool.AttrSourceRPM) })
	case NEVRA:
		return evalStringAttr(p, f, func(id pool.ID) string { return p.NEVRA(id) })
	case REPONAME:
		return evalExactString(p, f, func(id pool.ID) string { return p.Repo(id).Name })
	case EPOCH:
		return evalEpoch(p, f)
	case VERSION:
		return evalEVRSegment(p, f, func(e pool.EVR) string { return e.Version }, true)
	case RELEASE:
		return evalEVRSegment(p, f, func(e pool.EVR) string { return e.Release }, false)
	case ALL:
		return packageset.New(), nil
	case PKG:
		return evalPackageset(p, f)
	case OBSOLETES:
		if f.matchKind == matchPackageset {
			return evalObsoletesSet(p, f)
		}
		return evalReldepAttr(p, f, pool.AttrObsoletes)
	case PROVIDES:
		return evalProvides(p, f)
	case REQUIRES, CONFLICTS, RECOMMENDS, SUGGESTS, ENHANCES, SUPPLEMENTS:
		return evalReldepAttr(p, f, reldepAttr[f.keyname])
	case ADVISORY, ADVISORY_BUG, ADVISORY_CVE, ADVISORY_KIND, ADVISORY_SEVERITY:
		return evalAdvisory(p, f)
	default:
		return nil, dnferr.New(dnferr.BadQuery, "unhandled keyname in evaluation")
	}
}

func matchStr(cmpType cmp.Flag, pattern, value string) bool {
	if cmpType.Has(cmp.ICASE) {
		pattern = strings.ToLower(pattern)
		value = strings.ToLower(value)
	}

	switch {
	case cmpType.Has(cmp.GLOB):
		ok, _ := path.Match(pattern, value)
		return ok
	case cmpType.Has(cmp.SUBSTR):
		return strings.Contains(value, pattern)
	default:
		return value == pattern
	}
}

func evalStringAttr(p pool.Pool, f filter, attr func(pool.ID) string) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		v := attr(id)
		for _, pat := range f.strings {
			if matchStr(f.cmpType, pat, v) {
				m.Add(id)
				break
			}
		}
	}
	return m, nil
}

func evalExactString(p pool.Pool, f filter, attr func(pool.ID) string) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		v := attr(id)
		for _, pat := range f.strings {
			if v == pat {
				m.Add(id)
				break
			}
		}
	}
	return m, nil
}

func evalFileFilter(p pool.Pool, f filter) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		for _, file := range p.Files(id) {
			for _, pat := range f.strings {
				if matchStr(f.cmpType, pat, file) {
					m.Add(id)
				}
			}
		}
	}
	return m, nil
}

func evalEpoch(p pool.Pool, f filter) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		epoch := p.EVR(id).Epoch
		for _, want := range f.numbers {
			if numCmp(f.cmpType, epoch, want) {
				m.Add(id)
				break
			}
		}
	}
	return m, nil
}

func numCmp(cmpType cmp.Flag, got, want int) bool {
	switch {
	case cmpType.Has(cmp.GT):
		return got > want
	case cmpType.Has(cmp.LT):
		return got < want
	default:
		return got == want
	}
}

// evalEVRSegment implements VERSION/RELEASE: split pkg.evr into (e,v,r),
// compare "v-0" against "match-0" by evrcmp so the release field always
// anchors the comparison (symmetric for RELEASE with "0-r" vs "0-match").
func evalEVRSegment(p pool.Pool, f filter, seg func(pool.EVR) string, isVersion bool) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		v := seg(p.EVR(id))
		for _, match := range f.strings {
			if f.cmpType.Has(cmp.GLOB) {
				if ok, _ := path.Match(match, v); ok {
					m.Add(id)
				}
				continue
			}

			var a, b string
			if isVersion {
				a, b = v+"-0", match+"-0"
			} else {
				a, b = "0-"+v, "0-"+match
			}

			c := p.EVRCmp(a, b)
			if numCmp(f.cmpType, c, 0) {
				m.Add(id)
			}
		}
	}
	return m, nil
}

func evalPackageset(p pool.Pool, f filter) (*packageset.Set, error) {
	if f.cmpType.Has(cmp.NEQ) {
		complement := packageset.FromIDs(p.AllPackages()...)
		complement.SubtractInPlace(f.set)
		return complement, nil
	}
	return f.set, nil
}

func evalObsoletesSet(p pool.Pool, f filter) (*packageset.Set, error) {
	m := packageset.New()
	useProvides := p.ObsoletesUseProvides()

	for _, id := range p.AllPackages() {
		for _, dep := range p.Reldeps(id, pool.AttrObsoletes) {
			if useProvides {
				for _, provider := range p.WhatProvides(dep) {
					if f.set.Has(provider) {
						m.Add(id)
						break
					}
				}
				continue
			}

			matched := false
			f.set.Each(func(target pool.ID) bool {
				if obsoletesMatchesPackage(p, dep, target) {
					matched = true
					return false
				}
				return true
			})
			if matched {
				m.Add(id)
			}
		}
	}
	return m, nil
}

// obsoletesMatchesPackage tests an obsoletes reldep against a candidate
// package's own name+evr directly, bypassing the provides index — the
// stricter predicate used when the pool's obsoletes-uses-provides flag is
// off.
func obsoletesMatchesPackage(p pool.Pool, dep pool.Reldep, id pool.ID) bool {
	if dep.Name != p.Name(id) {
		return false
	}
	if dep.Op == pool.OpNone {
		return true
	}

	c := p.EVRCmp(p.EVR(id).String(), dep.EVR)
	switch {
	case dep.Op&pool.OpEQ != 0 && dep.Op&pool.OpGT != 0:
		return c >= 0
	case dep.Op&pool.OpEQ != 0 && dep.Op&pool.OpLT != 0:
		return c <= 0
	case dep.Op&pool.OpGT != 0:
		return c > 0
	case dep.Op&pool.OpLT != 0:
		return c < 0
	case dep.Op&pool.OpNEQ != 0:
		return c != 0
	case dep.Op&pool.OpEQ != 0:
		return c == 0
	default:
		return false
	}
}

func evalReldepAttr(p pool.Pool, f filter, attr pool.Attr) (*packageset.Set, error) {
	m := packageset.New()
	for _, id := range p.AllPackages() {
		for _, dep := range p.Reldeps(id, attr) {
			for _, match := range f.reldeps {
				if reldepMatches(dep, match) {
					m.Add(id)
					break
				}
			}
		}
	}
	return m, nil
}

// reldepMatches reports whether a solvable's declared reldep dep matches
// a query's match reldep: names must agree, and when the match carries a
// version constraint the declared reldep's own constraint must agree
// exactly (this is an attribute-equality test, not a provides-style
// satisfaction check — PROVIDES/OBSOLETES use WhatProvides for that).
func reldepMatches(dep, match pool.Reldep) bool {
	if dep.Name != match.Name {
		return false
	}
	if match.Op == pool.OpNone {
		return true
	}
	return dep.Op == match.Op && dep.EVR == match.EVR
}

func evalProvides(p pool.Pool, f filter) (*packageset.Set, error) {
	m := packageset.New()
	for _, match := range f.reldeps {
		for _, provider := range p.WhatProvides(match) {
			m.Add(provider)
		}
	}
	return m, nil
}

func evalAdvisory(p pool.Pool, f filter) (*packageset.Set, error) {
	if len(f.strings) > 1 {
		m := packageset.New()
		for _, v := range f.strings {
			one := f
			one.strings = []string{v}
			mv, err := evalAdvisory(p, one)
			if err != nil {
				return nil, err
			}
			m.UnionInPlace(mv)
		}
		return m, nil
	}

	pred := pool.AdvisoryPredicate{}
	switch f.keyname {
	case ADVISORY:
		if len(f.strings) > 0 {
			pred.ID = f.strings[0]
		}
	case ADVISORY_BUG:
		if len(f.strings) > 0 {
			pred.Bug = f.strings[0]
		}
	case ADVISORY_CVE:
		if len(f.strings) > 0 {
			pred.CVE = f.strings[0]
		}
	case ADVISORY_KIND:
		if len(f.strings) > 0 {
			pred.Kind = f.strings[0]
		}
	case ADVISORY_SEVERITY:
		if len(f.strings) > 0 {
			pred.Severity = f.strings[0]
		}
	}

	nevras, err := p.AdvisoryPackages(context.Background(), pred)
	if err != nil {
		return nil, dnferr.Wrap(dnferr.InternalError, err, "advisory lookup failed")
	}

	// Dedupe the collected NEVRAs; several values are OR-ed by the union
	// above.
	seen := stringset.FromSlice(nevras)

	m := packageset.New()
	for _, id := range p.AllPackages() {
		if seen.Get(p.NEVRA(id)) {
			m.Add(id)
		}
	}
	return m, nil
}

// Run materialises the result as a slice of package ids, applying first
// if necessary.
func (q *Query) Run() ([]pool.ID, error) {
	if err := q.Apply(); err != nil {
		return nil, err
	}
	return q.result.ToSlice(), nil
}

// RunSet materialises the result as a packageset, applying first if
// necessary.
func (q *Query) RunSet() (*packageset.Set, error) {
	if err := q.Apply(); err != nil {
		return nil, err
	}
	return q.result.Clone(), nil
}

// Clone returns a deep copy including pending filters.
func (q *Query) Clone() *Query {
	clone := &Query{
		sack:          q.sack,
		flags:         q.flags,
		filters:       append([]filter(nil), q.filters...),
		latest:        q.latest,
		latestPerArch: q.latestPerArch,
		downgrades:    q.downgrades,
		downgradable:  q.downgradable,
		updates:       q.updates,
		updatable:     q.updatable,
		applied:       q.applied,
	}
	if q.result != nil {
		clone.result = q.result.Clone()
	} else {
		clone.result = packageset.New()
	}
	return clone
}

// Union applies both sides then replaces a's bitmap with the union;
// a.applied remains true.
func (a *Query) Union(b *Query) error { return a.combine(b, (*packageset.Set).Union) }

// Intersection applies both sides then replaces a's bitmap with the
// intersection; a.applied remains true.
func (a *Query) Intersection(b *Query) error {
	return a.combine(b, (*packageset.Set).Intersection)
}

// Difference applies both sides then replaces a's bitmap with a − b;
// a.applied remains true.
func (a *Query) Difference(b *Query) error { return a.combine(b, (*packageset.Set).Difference) }

func (a *Query) combine(b *Query, op func(*packageset.Set, *packageset.Set) *packageset.Set) error {
	if err := a.Apply(); err != nil {
		return err
	}
	if err := b.Apply(); err != nil {
		return err
	}
	a.result = op(a.result, b.result)
	a.applied = true
	return nil
}

// EpochString renders an int epoch for use as a FilterStrings-style
// literal, e.g. when building an EVR match string by hand.
func EpochString(e int) string {
	return strconv.Itoa(e)
}
