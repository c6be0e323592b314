// Package memory is a pure-Go reference implementation of pool.Pool
// standing in for an external collaborator: no libsolv, no cgo, just
// maps and slices holding exactly what the core needs to drive its own
// tests. It is not a production backend — the real adapter binds
// pool.Pool to libsolv — but the package-by-package property tests in
// sack, query, selector and goal all build their fixtures through this
// one.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/solvable-go/dnfcore/pkg/evr"
	"github.com/solvable-go/dnfcore/pkg/pool"
)

type solvable struct {
	id     pool.ID
	repo   string
	name   string
	arch   string
	evr    pool.EVR
	evrStr string
	attrs  map[pool.Attr]string
	files  []string
	rels   map[pool.Attr][]pool.Reldep
}

// Pool is an in-memory pool.Pool. The zero value is not usable; build one
// with New and populate it with AddRepo and NewSolvable(...).Add().
type Pool struct {
	repos     map[string]pool.Repo
	solvables map[pool.ID]*solvable
	nextID    pool.ID

	obsoletesUseProvides bool
}

// New returns an empty Pool with id allocation starting after the
// reserved system id. ObsoletesUseProvides defaults to true, matching
// libsolv's own POOL_FLAG_OBSOLETEUSESPROVIDES default.
func New() *Pool {
	return &Pool{
		repos:                make(map[string]pool.Repo),
		solvables:            make(map[pool.ID]*solvable),
		nextID:               pool.SystemID + 1,
		obsoletesUseProvides: true,
	}
}

// SetObsoletesUseProvides toggles the flag ObsoletesUseProvides reports.
func (p *Pool) SetObsoletesUseProvides(on bool) {
	p.obsoletesUseProvides = on
}

func (p *Pool) ObsoletesUseProvides() bool {
	return p.obsoletesUseProvides
}

// AddRepo registers (or updates) a repository.
func (p *Pool) AddRepo(r pool.Repo) {
	p.repos[r.Name] = r
}

// Builder accumulates a solvable's attributes before committing it to the
// pool with Add.
type Builder struct {
	p *Pool
	s *solvable
}

// NewSolvable starts building a solvable of the given NEVRA identity
// within repo. repo must already have been registered with AddRepo.
func (p *Pool) NewSolvable(repo, name, evrStr, arch string) *Builder {
	id := p.nextID
	p.nextID++

	return &Builder{
		p: p,
		s: &solvable{
			id:     id,
			repo:   repo,
			name:   name,
			arch:   arch,
			evr:    toPoolEVR(evr.Parse(evrStr)),
			evrStr: evrStr,
			attrs:  make(map[pool.Attr]string),
			rels:   make(map[pool.Attr][]pool.Reldep),
		},
	}
}

// Attr sets a scalar string attribute (summary, description, url, ...).
func (b *Builder) Attr(attr pool.Attr, value string) *Builder {
	b.s.attrs[attr] = value
	return b
}

// Files sets the solvable's file list.
func (b *Builder) Files(files ...string) *Builder {
	b.s.files = files
	return b
}

// Provides, Requires, Conflicts, Obsoletes, Recommends, Suggests,
// Enhances and Supplements each append reldeps to the matching relational
// attribute.
func (b *Builder) Provides(rds ...pool.Reldep) *Builder   { return b.rel(pool.AttrProvides, rds) }
func (b *Builder) Requires(rds ...pool.Reldep) *Builder    { return b.rel(pool.AttrRequires, rds) }
func (b *Builder) Conflicts(rds ...pool.Reldep) *Builder   { return b.rel(pool.AttrConflicts, rds) }
func (b *Builder) Obsoletes(rds ...pool.Reldep) *Builder   { return b.rel(pool.AttrObsoletes, rds) }
func (b *Builder) Recommends(rds ...pool.Reldep) *Builder  { return b.rel(pool.AttrRecommends, rds) }
func (b *Builder) Suggests(rds ...pool.Reldep) *Builder    { return b.rel(pool.AttrSuggests, rds) }
func (b *Builder) Enhances(rds ...pool.Reldep) *Builder    { return b.rel(pool.AttrEnhances, rds) }
func (b *Builder) Supplements(rds ...pool.Reldep) *Builder { return b.rel(pool.AttrSupplements, rds) }

func (b *Builder) rel(attr pool.Attr, rds []pool.Reldep) *Builder {
	b.s.rels[attr] = append(b.s.rels[attr], rds...)
	return b
}

// Add commits the solvable to the pool, auto-adding a self-provide for
// name = evr if none was set explicitly (matching rpm's own behavior),
// and returns its id.
func (b *Builder) Add() pool.ID {
	if len(b.s.rels[pool.AttrProvides]) == 0 {
		b.s.rels[pool.AttrProvides] = []pool.Reldep{{Name: b.s.name, Op: pool.OpEQ, EVR: b.s.evrStr}}
	}

	b.p.solvables[b.s.id] = b.s

	return b.s.id
}

func toPoolEVR(e evr.EVR) pool.EVR {
	out := pool.EVR{Epoch: -1, Version: e.Version, Release: e.Release}
	if e.Epoch != nil {
		out.Epoch = *e.Epoch
	}
	return out
}

func (p *Pool) AllPackages() []pool.ID {
	ids := make([]pool.ID, 0, len(p.solvables))
	for id := range p.solvables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Pool) Repo(id pool.ID) pool.Repo {
	s, ok := p.solvables[id]
	if !ok {
		return pool.Repo{}
	}
	return p.repos[s.repo]
}

func (p *Pool) Repos() []pool.Repo {
	out := make([]pool.Repo, 0, len(p.repos))
	for _, r := range p.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (p *Pool) Name(id pool.ID) string {
	if s, ok := p.solvables[id]; ok {
		return s.name
	}
	return ""
}

func (p *Pool) Arch(id pool.ID) string {
	if s, ok := p.solvables[id]; ok {
		return s.arch
	}
	return ""
}

func (p *Pool) EVR(id pool.ID) pool.EVR {
	if s, ok := p.solvables[id]; ok {
		return s.evr
	}
	return pool.EVR{Epoch: -1}
}

func (p *Pool) String(id pool.ID, attr pool.Attr) string {
	s, ok := p.solvables[id]
	if !ok {
		return ""
	}
	return s.attrs[attr]
}

func (p *Pool) Files(id pool.ID) []string {
	if s, ok := p.solvables[id]; ok {
		return s.files
	}
	return nil
}

func (p *Pool) Reldeps(id pool.ID, attr pool.Attr) []pool.Reldep {
	if s, ok := p.solvables[id]; ok {
		return s.rels[attr]
	}
	return nil
}

func (p *Pool) WhatProvides(dep pool.Reldep) []pool.ID {
	var out []pool.ID
	for _, id := range p.AllPackages() {
		s := p.solvables[id]
		for _, prov := range s.rels[pool.AttrProvides] {
			if depSatisfies(dep, prov) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// depSatisfies reports whether a provided capability (name, evr, op)
// satisfies the requested dependency dep, following rpm's rule that an
// unversioned request is satisfied by any version of a matching provide,
// and a versioned request requires the provide's own version constraint
// (if any) to be compatible with the requested range.
func depSatisfies(dep, prov pool.Reldep) bool {
	if dep.Name != prov.Name {
		return false
	}
	if dep.Op == pool.OpNone {
		return true
	}
	if prov.Op == pool.OpNone {
		return false
	}
	c := evr.Cmp(prov.EVR, dep.EVR)
	switch {
	case dep.Op&pool.OpGT != 0 && dep.Op&pool.OpEQ != 0:
		return c >= 0
	case dep.Op&pool.OpLT != 0 && dep.Op&pool.OpEQ != 0:
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

func (p *Pool) WhatUpgrades(candidate pool.ID) pool.ID {
	return p.bestInstalledWithSameName(candidate, func(c int) bool { return c < 0 })
}

func (p *Pool) WhatDowngrades(candidate pool.ID) pool.ID {
	return p.bestInstalledWithSameName(candidate, func(c int) bool { return c > 0 })
}

// bestInstalledWithSameName returns the installed solvable sharing
// candidate's name and arch for which installedOlder holds on the
// comparison of the installed EVR against the candidate's, or NoID.
func (p *Pool) bestInstalledWithSameName(candidate pool.ID, installedOlder func(cmpInstalledVsCandidate int) bool) pool.ID {
	cand, ok := p.solvables[candidate]
	if !ok {
		return pool.NoID
	}

	for _, id := range p.AllPackages() {
		s := p.solvables[id]
		if s.repo != pool.SystemRepo || s.name != cand.name || s.arch != cand.arch {
			continue
		}
		if installedOlder(evr.CompareEVR(toEVR(s.evr), toEVR(cand.evr))) {
			return id
		}
	}

	return pool.NoID
}

func toEVR(e pool.EVR) evr.EVR {
	out := evr.EVR{Version: e.Version, Release: e.Release}
	if e.Epoch >= 0 {
		v := e.Epoch
		out.Epoch = &v
	}
	return out
}

func (p *Pool) EVRCmp(a, b string) int {
	return evr.Cmp(a, b)
}

// AdvisoryPackages returns the NEVRA of every package whose
// AttrAdvisoryCollection attribute equals pred.Kind (every package when
// Kind is empty). The ID, Bug, CVE and Severity fields of pred are not
// checked.
func (p *Pool) AdvisoryPackages(_ context.Context, pred pool.AdvisoryPredicate) ([]string, error) {
	var out []string
	for _, id := range p.AllPackages() {
		s := p.solvables[id]
		if pred.Kind != "" && s.attrs[pool.AttrAdvisoryCollection] != pred.Kind {
			continue
		}
		out = append(out, p.NEVRA(id))
	}
	return out, nil
}

func (p *Pool) NEVRA(id pool.ID) string {
	s, ok := p.solvables[id]
	if !ok {
		return ""
	}

	evrPart := s.evr.String()
	if strings.Contains(evrPart, ":") || !strings.Contains(evrPart, "-") {
		return fmt.Sprintf("%s-%s.%s", s.name, evrPart, s.arch)
	}

	return fmt.Sprintf("%s-%s.%s", s.name, evrPart, s.arch)
}
