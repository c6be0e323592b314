package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/packageset"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/query"
	"github.com/solvable-go/dnfcore/pkg/sack"
)

func newFixture(t *testing.T) *sack.Sack {
	t.Helper()

	p := memory.New()
	p.AddRepo(pool.Repo{Name: pool.SystemRepo, Installed: true, Enabled: true})
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Attr(pool.AttrSummary, "the foo package").Add()
	p.NewSolvable("fedora", "foo", "2.0-1", "x86_64").Attr(pool.AttrSummary, "the foo package v2").Add()
	p.NewSolvable("fedora", "foo", "2.0-1", "i686").Add()
	p.NewSolvable("fedora", "bar", "1.0-1", "x86_64").
		Requires(pool.Reldep{Name: "foo", Op: pool.OpNone}).
		Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	return s
}

func names(t *testing.T, s *sack.Sack, ids []pool.ID) []string {
	t.Helper()
	var out []string
	for _, id := range ids {
		out = append(out, s.Pool().NEVRA(id))
	}
	return out
}

func TestFilterNameEq(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterStrings(query.NAME, cmp.EQ, "foo"))

	ids, err := q.Run()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestFilterLatestPerArch(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterStrings(query.NAME, cmp.EQ, "foo"))
	q.FilterLatestPerArch(true)

	set, err := q.RunSet()
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestFilterLatestKeepsHighestEVR(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterStrings(query.NAME, cmp.EQ, "foo"))
	q.FilterLatest(true)

	ids, err := q.Run()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "2.0-1", s.Pool().EVR(ids[0]).String())
}

func TestFilterEmpty(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterStrings(query.NAME, cmp.EQ, "foo"))
	q.FilterEmpty()

	ids, err := q.Run()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFilterGlob(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterStrings(query.NAME, cmp.GLOB, "f*"))

	ids, err := q.Run()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestFilterRequires(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterReldeps(query.REQUIRES, cmp.EQ, pool.Reldep{Name: "foo"}))

	ids, err := q.Run()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "bar", s.Pool().Name(ids[0]))
}

func TestFilterProvidesIsSugarOverReldepFilter(t *testing.T) {
	s := newFixture(t)

	direct := query.Create(s, query.None)
	require.NoError(t, direct.FilterReldeps(query.PROVIDES, cmp.EQ, pool.Reldep{Name: "foo"}))
	directIDs, err := direct.Run()
	require.NoError(t, err)

	sugar := query.Create(s, query.None)
	require.NoError(t, sugar.FilterProvides(pool.Reldep{Name: "foo"}))
	sugarIDs, err := sugar.Run()
	require.NoError(t, err)

	assert.ElementsMatch(t, directIDs, sugarIDs)
}

func TestFilterReldepGlobExpandsToMatchingProvideNames(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterReldepGlob(query.REQUIRES, "fo*"))

	ids, err := q.Run()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "bar", s.Pool().Name(ids[0]))
}

func TestFilterReldepGlobNoMatchYieldsEmpty(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	require.NoError(t, q.FilterReldepGlob(query.REQUIRES, "nope*"))

	ids, err := q.Run()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestObsoletesPackagesetRequiresNameEVRWhenProvidesFlagOff(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	oldFoo := p.NewSolvable("fedora", "old-foo", "1.0-1", "x86_64").
		Provides(pool.Reldep{Name: "foo", Op: pool.OpEQ, EVR: "1.0-1"}).
		Add()
	p.NewSolvable("fedora", "new-foo", "2.0-1", "x86_64").
		Obsoletes(pool.Reldep{Name: "foo"}).
		Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	target := packageset.FromIDs(oldFoo)

	withProvides := query.Create(s, query.None)
	require.NoError(t, withProvides.FilterPackageset(query.OBSOLETES, cmp.EQ, target))
	idsWithProvides, err := withProvides.Run()
	require.NoError(t, err)
	assert.Len(t, idsWithProvides, 1)

	p.SetObsoletesUseProvides(false)

	strict := query.Create(s, query.None)
	require.NoError(t, strict.FilterPackageset(query.OBSOLETES, cmp.EQ, target))
	idsStrict, err := strict.Run()
	require.NoError(t, err)
	assert.Empty(t, idsStrict)
}

func TestUnionIsCommutative(t *testing.T) {
	s := newFixture(t)

	a := query.Create(s, query.None)
	require.NoError(t, a.FilterStrings(query.NAME, cmp.EQ, "foo"))
	b := query.Create(s, query.None)
	require.NoError(t, b.FilterStrings(query.NAME, cmp.EQ, "bar"))

	ab := a.Clone()
	require.NoError(t, ab.Union(b))

	c := query.Create(s, query.None)
	require.NoError(t, c.FilterStrings(query.NAME, cmp.EQ, "bar"))
	d := query.Create(s, query.None)
	require.NoError(t, d.FilterStrings(query.NAME, cmp.EQ, "foo"))

	ba := c.Clone()
	require.NoError(t, ba.Union(d))

	abSet, err := ab.RunSet()
	require.NoError(t, err)
	baSet, err := ba.RunSet()
	require.NoError(t, err)
	assert.True(t, abSet.Equal(baSet))
}

func TestIntersectionViaDifference(t *testing.T) {
	s := newFixture(t)

	a := query.Create(s, query.None)
	require.NoError(t, a.FilterStrings(query.NAME, cmp.GLOB, "*"))
	b := query.Create(s, query.None)
	require.NoError(t, b.FilterStrings(query.NAME, cmp.EQ, "bar"))

	direct := a.Clone()
	require.NoError(t, direct.Intersection(b))

	viaDiff := a.Clone()
	notB := a.Clone()
	require.NoError(t, notB.Difference(b))
	require.NoError(t, viaDiff.Difference(notB))

	directSet, err := direct.RunSet()
	require.NoError(t, err)
	diffSet, err := viaDiff.RunSet()
	require.NoError(t, err)
	assert.True(t, directSet.Equal(diffSet))
}

func TestInvalidFilterShapeRejected(t *testing.T) {
	s := newFixture(t)

	q := query.Create(s, query.None)
	err := q.FilterStrings(query.LOCATION, cmp.GLOB, "x")
	assert.Error(t, err)
}
