// Package reldep models relational dependency expressions: "name OP evr"
// triples such as "foo >= 1.2-3" or bare "foo" with no version constraint.
// Grounded on yay's dependency string parsing (pkg/dep's splitDep/Target
// handling), generalized from pacman's "name<op>version" grammar to the
// richer RPM comparator set.
package reldep

import (
	"fmt"
	"strings"

	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/evr"
	"github.com/solvable-go/dnfcore/pkg/pool"
)

// Reldep is a parsed "name OP evr" dependency expression. Op is zero when
// the expression carries no version constraint (EVR is then empty).
type Reldep struct {
	Name string
	Op   cmp.Flag
	EVR  string
}

// List is an ordered, owning list of reldeps.
type List []Reldep

var opTable = []struct {
	token string
	flag  cmp.Flag
}{
	{">=", cmp.GT | cmp.EQ},
	{"<=", cmp.LT | cmp.EQ},
	{"==", cmp.EQ},
	{"!=", cmp.NEQ},
	{">", cmp.GT},
	{"<", cmp.LT},
	{"=", cmp.EQ},
}

// Parse reads a single "name[ OP evr]" expression. Whitespace around the
// operator is optional ("foo>=1.0" and "foo >= 1.0" both parse).
func Parse(s string) (Reldep, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reldep{}, fmt.Errorf("reldep: empty expression")
	}

	for _, op := range opTable {
		if idx := strings.Index(s, op.token); idx >= 0 {
			name := strings.TrimSpace(s[:idx])
			val := strings.TrimSpace(s[idx+len(op.token):])

			if name == "" || val == "" {
				return Reldep{}, fmt.Errorf("reldep: malformed expression %q", s)
			}

			return Reldep{Name: name, Op: op.flag, EVR: val}, nil
		}
	}

	return Reldep{Name: s}, nil
}

// ParseList parses a whitespace-separated list such as a Requires: line,
// where each token may itself be "name", "name=evr", or "name OP evr"
// joined without spaces (the common RPM header encoding collapses the
// space around the operator into the surrounding tokens).
func ParseList(fields []string) (List, error) {
	list := make(List, 0, len(fields))

	for _, f := range fields {
		rd, err := Parse(f)
		if err != nil {
			return nil, err
		}

		list = append(list, rd)
	}

	return list, nil
}

// String renders the canonical form, e.g. "foo >= 1.2-3" or bare "foo".
func (r Reldep) String() string {
	if r.Op == 0 {
		return r.Name
	}

	return fmt.Sprintf("%s %s %s", r.Name, r.opString(), r.EVR)
}

func (r Reldep) opString() string {
	switch {
	case r.Op.Has(cmp.GT | cmp.EQ):
		return ">="
	case r.Op.Has(cmp.LT | cmp.EQ):
		return "<="
	case r.Op.Has(cmp.GT):
		return ">"
	case r.Op.Has(cmp.LT):
		return "<"
	case r.Op.Has(cmp.NEQ):
		return "!="
	default:
		return "="
	}
}

// ToPool converts r to the pool package's wire form, used at the boundary
// where sack hands parsed header strings to a pool.Pool implementation.
func (r Reldep) ToPool() pool.Reldep {
	var op pool.ReldepOp
	if r.Op.Has(cmp.EQ) {
		op |= pool.OpEQ
	}
	if r.Op.Has(cmp.GT) {
		op |= pool.OpGT
	}
	if r.Op.Has(cmp.LT) {
		op |= pool.OpLT
	}
	if r.Op.Has(cmp.NEQ) {
		op |= pool.OpNEQ
	}

	return pool.Reldep{Name: r.Name, Op: op, EVR: r.EVR}
}

// FromPool converts a pool-side reldep back to the parser's richer form.
func FromPool(pr pool.Reldep) Reldep {
	var f cmp.Flag
	if pr.Op&pool.OpEQ != 0 {
		f |= cmp.EQ
	}
	if pr.Op&pool.OpGT != 0 {
		f |= cmp.GT
	}
	if pr.Op&pool.OpLT != 0 {
		f |= cmp.LT
	}
	if pr.Op&pool.OpNEQ != 0 {
		f |= cmp.NEQ
	}

	return Reldep{Name: pr.Name, Op: f, EVR: pr.EVR}
}

// Satisfies reports whether a candidate (name, evr) pair satisfies this
// reldep: the names must match and, when a version constraint is present,
// the candidate's evr must compare against r.EVR per r.Op.
func (r Reldep) Satisfies(name, candidateEVR string) bool {
	if name != r.Name {
		return false
	}

	if r.Op == 0 {
		return true
	}

	c := evr.Cmp(candidateEVR, r.EVR)

	switch {
	case r.Op.Has(cmp.GT | cmp.EQ):
		return c >= 0
	case r.Op.Has(cmp.LT | cmp.EQ):
		return c <= 0
	case r.Op.Has(cmp.GT):
		return c > 0
	case r.Op.Has(cmp.LT):
		return c < 0
	case r.Op.Has(cmp.NEQ):
		return c != 0
	case r.Op.Has(cmp.EQ):
		return c == 0
	default:
		return false
	}
}
