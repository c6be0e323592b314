package selector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/query"
	"github.com/solvable-go/dnfcore/pkg/sack"
	"github.com/solvable-go/dnfcore/pkg/selector"
)

func newFixture(t *testing.T) *sack.Sack {
	t.Helper()

	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})
	p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	return s
}

func TestSelectorRequiresAnAxis(t *testing.T) {
	s := selector.New().SetArch("x86_64")
	assert.Error(t, s.Validate())
}

func TestSelectorValidWithName(t *testing.T) {
	s := selector.New().SetName("foo")
	assert.NoError(t, s.Validate())
}

func TestSelectorToQuery(t *testing.T) {
	sk := newFixture(t)

	sel := selector.New().SetName("foo").SetArch("x86_64")
	q, err := sel.ToQuery(func() *query.Query { return query.Create(sk, query.None) })
	require.NoError(t, err)

	ids, err := q.Run()
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSelectorToQueryBadSelector(t *testing.T) {
	sk := newFixture(t)

	sel := selector.New().SetArch("x86_64")
	_, err := sel.ToQuery(func() *query.Query { return query.Create(sk, query.None) })
	assert.Error(t, err)
}
