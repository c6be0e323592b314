// Package selector implements the narrow, single-valued filter bundle
// the goal translates into a solver job: at most one filter per axis
// among name, provides, file, arch, evr, reponame.
package selector

import (
	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/dnferr"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/query"
)

// Selector holds at most one filter per axis; an axis is absent when its
// pointer is nil.
type Selector struct {
	Name     *string
	Provides *pool.Reldep
	File     *string
	Arch     *string
	EVR      *string
	Reponame *string
}

// New returns an empty Selector.
func New() *Selector { return &Selector{} }

func (s *Selector) SetName(v string) *Selector         { s.Name = &v; return s }
func (s *Selector) SetProvides(v pool.Reldep) *Selector { s.Provides = &v; return s }
func (s *Selector) SetFile(v string) *Selector          { s.File = &v; return s }
func (s *Selector) SetArch(v string) *Selector          { s.Arch = &v; return s }
func (s *Selector) SetEVR(v string) *Selector           { s.EVR = &v; return s }
func (s *Selector) SetReponame(v string) *Selector      { s.Reponame = &v; return s }

// Validate reports BadSelector unless at least one of {name, provides,
// file} is set.
func (s *Selector) Validate() error {
	if s.Name == nil && s.Provides == nil && s.File == nil {
		return dnferr.New(dnferr.BadSelector, "selector requires at least one of name, provides or file")
	}
	return nil
}

// ToQuery builds the base selection query (name, or provides, or file),
// then successively ANDs arch, evr, reponame as additional filters —
// sltr2job's query-engine equivalent. create constructs the empty query
// bound to the caller's sack. pkg/goal resolves selectors against the
// pool itself and does not call ToQuery.
func (s *Selector) ToQuery(create func() *query.Query) (*query.Query, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	q := create()

	switch {
	case s.Name != nil:
		if err := q.FilterStrings(query.NAME, cmp.EQ, *s.Name); err != nil {
			return nil, err
		}
	case s.Provides != nil:
		if err := q.FilterReldeps(query.PROVIDES, cmp.EQ, *s.Provides); err != nil {
			return nil, err
		}
	case s.File != nil:
		if err := q.FilterStrings(query.FILE, cmp.EQ, *s.File); err != nil {
			return nil, err
		}
	}

	if s.Arch != nil {
		if err := q.FilterStrings(query.ARCH, cmp.EQ, *s.Arch); err != nil {
			return nil, err
		}
	}
	if s.EVR != nil {
		if err := q.FilterStrings(query.EVR, cmp.EQ, *s.EVR); err != nil {
			return nil, err
		}
	}
	if s.Reponame != nil {
		if err := q.FilterStrings(query.REPONAME, cmp.EQ, *s.Reponame); err != nil {
			return nil, err
		}
	}

	return q, nil
}
