// Package naive is a pure-Go reference Solver: a greedy, non-backtracking
// dependency resolver built on the pool's provides index and pkg/topo for
// ordering, good enough to drive the goal engine's own tests without a
// real SAT-style backend. It is not a production solver — it makes the
// first satisfying choice for each requirement and never revisits it.
package naive

import (
	"fmt"
	"sort"

	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/solver"
	"github.com/solvable-go/dnfcore/pkg/topo"
)

// Solver is the naive reference solver.
type Solver struct {
	pool pool.Pool

	flags map[solver.SolverFlag]bool

	installed map[pool.ID]bool
	steps     []solver.Step
	problems  []string
	ruleClass map[pool.ID]solver.RuleClass

	deps *topo.Graph[pool.ID, struct{}]
}

// New returns a Solver bound to p, with the given system-installed ids
// pre-seeded as the starting state.
func New(p pool.Pool, installed []pool.ID) *Solver {
	s := &Solver{
		pool:      p,
		flags:     make(map[solver.SolverFlag]bool),
		installed: make(map[pool.ID]bool, len(installed)),
		ruleClass: make(map[pool.ID]solver.RuleClass),
		deps:      topo.New[pool.ID, struct{}](),
	}
	for _, id := range installed {
		s.installed[id] = true
	}
	return s
}

func (s *Solver) SetFlag(flag solver.SolverFlag, value bool) {
	s.flags[flag] = value
}

// Solve walks jobs in order: INSTALL jobs pull in the target and its
// transitive requires (first satisfying provider by descending EVR wins
// ties); ERASE jobs remove the target, cascading to dependents when
// JobCleandeps is set.
func (s *Solver) Solve(jobs []solver.Job) (int, error) {
	s.steps = nil
	s.problems = nil
	s.ruleClass = make(map[pool.ID]solver.RuleClass)

	toInstall := make(map[pool.ID]bool)
	toErase := make(map[pool.ID]bool)

	for _, job := range jobs {
		switch {
		case job.Flags&solver.JobInstall != 0 && job.Flags&solver.JobSolvableAll == 0:
			s.stageInstall(job.Operand, solver.RuleJob, toInstall)
		case job.Flags&solver.JobErase != 0:
			toErase[job.Operand] = true
			s.ruleClass[job.Operand] = classifyErase(job.Flags)
			if job.Flags&solver.JobCleandeps != 0 {
				for dependent := range s.dependentsOf(job.Operand) {
					if s.installed[dependent] && !toErase[dependent] {
						toErase[dependent] = true
						s.ruleClass[dependent] = solver.RuleCleandepsErase
					}
				}
			}
		case job.Flags&solver.JobUpdate != 0 && job.Flags&solver.JobSolvableAll != 0:
			s.stageUpdateAll(toInstall)
		case job.Flags&solver.JobUpdate != 0:
			if upgraded := s.pool.WhatUpgrades(job.Operand); upgraded != pool.NoID {
				s.stageInstall(job.Operand, solver.RuleJob, toInstall)
			}
		}
	}

	for id := range toInstall {
		if toErase[id] {
			delete(toErase, id)
		}
	}

	for id := range toInstall {
		if s.installed[id] {
			continue
		}
		obsoleted := s.pool.WhatUpgrades(id)
		if obsoleted != pool.NoID {
			s.steps = append(s.steps, solver.Step{Type: solver.StepUpgrade, Package: id, Obsoleted: obsoleted})
		} else {
			s.steps = append(s.steps, solver.Step{Type: solver.StepInstall, Package: id})
		}
	}

	for id := range toErase {
		s.steps = append(s.steps, solver.Step{Type: solver.StepErase, Package: id})
	}

	layer := make(map[pool.ID]int)
	for i, nodes := range s.deps.TopoSortedLayers() {
		for _, id := range nodes {
			layer[id] = i
		}
	}
	sort.Slice(s.steps, func(i, j int) bool {
		li, lj := layer[s.steps[i].Package], layer[s.steps[j].Package]
		if li != lj {
			return li < lj
		}
		return s.steps[i].Package < s.steps[j].Package
	})

	return len(s.problems), nil
}

func classifyErase(flags solver.JobFlag) solver.RuleClass {
	if flags&solver.JobCleandeps != 0 {
		return solver.RuleCleandepsErase
	}
	return solver.RuleJob
}

// stageInstall adds id and transitively resolves its requires, recording
// the rule class that first pulled each package in.
func (s *Solver) stageInstall(id pool.ID, rc solver.RuleClass, toInstall map[pool.ID]bool) {
	if toInstall[id] || s.installed[id] {
		if _, ok := s.ruleClass[id]; !ok {
			s.ruleClass[id] = rc
		}
		return
	}

	toInstall[id] = true
	s.ruleClass[id] = rc
	s.deps.AddNode(id)

	for _, req := range s.pool.Reldeps(id, pool.AttrRequires) {
		providers := s.pool.WhatProvides(req)
		if len(providers) == 0 {
			s.problems = append(s.problems, fmt.Sprintf("nothing provides %q needed by %s", req.Name, s.pool.NEVRA(id)))
			continue
		}

		best := bestByEVR(s.pool, providers)
		if s.installed[best] {
			continue
		}

		_ = s.deps.DependOn(id, best)
		s.stageInstall(best, solver.RuleDep, toInstall)
	}

	for _, rec := range s.pool.Reldeps(id, pool.AttrRecommends) {
		providers := s.pool.WhatProvides(rec)
		if len(providers) == 0 {
			continue
		}
		best := bestByEVR(s.pool, providers)
		if !s.installed[best] {
			s.stageInstall(best, solver.RuleWeakdep, toInstall)
		}
	}
}

func (s *Solver) stageUpdateAll(toInstall map[pool.ID]bool) {
	for id := range s.installed {
		if up := s.pool.WhatUpgrades(id); up != pool.NoID {
			s.stageInstall(up, solver.RuleJob, toInstall)
		}
	}
}

func (s *Solver) dependentsOf(id pool.ID) map[pool.ID]bool {
	out := make(map[pool.ID]bool)
	name := s.pool.Name(id)

	for candidate := range s.installed {
		for _, req := range s.pool.Reldeps(candidate, pool.AttrRequires) {
			if req.Name == name {
				out[candidate] = true
			}
		}
	}

	return out
}

func bestByEVR(p pool.Pool, ids []pool.ID) pool.ID {
	best := ids[0]
	for _, id := range ids[1:] {
		if p.EVRCmp(p.EVR(id).String(), p.EVR(best).String()) > 0 {
			best = id
		}
	}
	return best
}

func (s *Solver) CreateTransaction() []solver.Step {
	return append([]solver.Step(nil), s.steps...)
}

func (s *Solver) DescribeProblem(i int) string {
	if i < 0 || i >= len(s.problems) {
		return ""
	}
	return s.problems[i]
}

func (s *Solver) RuleClass(id pool.ID) solver.RuleClass {
	if rc, ok := s.ruleClass[id]; ok {
		return rc
	}
	return solver.RuleUnknown
}
