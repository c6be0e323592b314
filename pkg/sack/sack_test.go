package sack_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/packageset"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/sack"
)

func newFixture(t *testing.T) (*sack.Sack, *memory.Pool, map[string]pool.ID) {
	t.Helper()

	p := memory.New()
	p.AddRepo(pool.Repo{Name: pool.SystemRepo, Enabled: true, Installed: true})
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	ids := map[string]pool.ID{}
	ids["kernel-old"] = p.NewSolvable(pool.SystemRepo, "kernel", "5.10.0-1", "x86_64").Add()
	ids["kernel-new"] = p.NewSolvable("fedora", "kernel", "5.14.0-1", "x86_64").Add()
	ids["foo"] = p.NewSolvable(pool.SystemRepo, "foo", "1.0-1", "x86_64").Add()
	ids["bar"] = p.NewSolvable("fedora", "bar", "2.0-1", "x86_64").
		Provides(pool.Reldep{Name: "virtual-bar", Op: pool.OpEQ, EVR: "2.0-1"}).
		Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64", Cachedir: t.TempDir()})
	require.NoError(t, err)

	return s, p, ids
}

func TestNewRejectsUnknownArch(t *testing.T) {
	p := memory.New()
	_, err := sack.New(p, sack.Options{Arch: "bogus"})
	assert.Error(t, err)
}

func TestRecomputeConsideredNoPolicy(t *testing.T) {
	s, _, ids := newFixture(t)

	considered := s.RecomputeConsidered()
	for _, id := range ids {
		assert.True(t, considered.Has(id))
	}
}

func TestRecomputeConsideredWithExcludes(t *testing.T) {
	s, _, ids := newFixture(t)

	s.AddExcludes(packageset.FromIDs(ids["bar"]))

	considered := s.RecomputeConsidered()
	assert.False(t, considered.Has(ids["bar"]))
	assert.True(t, considered.Has(ids["foo"]))
}

func TestRecomputeConsideredWithIncludes(t *testing.T) {
	s, _, ids := newFixture(t)

	s.AddIncludes(packageset.FromIDs(ids["foo"], ids["bar"]))

	considered := s.RecomputeConsidered()
	assert.True(t, considered.Has(ids["foo"]))
	assert.True(t, considered.Has(ids["bar"]))
	assert.False(t, considered.Has(ids["kernel-old"]))
}

func TestKnows(t *testing.T) {
	s, _, _ := newFixture(t)

	assert.Equal(t, sack.KnownAsPackage, s.Knows("foo", ""))
	assert.Equal(t, sack.KnownAsProviderOnly, s.Knows("virtual-bar", ""))
	assert.Equal(t, sack.Unknown, s.Knows("nonexistent", ""))
}

func TestKnowsWithOptionsGlobAndICase(t *testing.T) {
	s, _, _ := newFixture(t)

	assert.Equal(t, sack.KnownAsPackage, s.KnowsWithOptions("FOO", "", sack.KnowsOptions{ICase: true}))
	assert.Equal(t, sack.KnownAsPackage, s.KnowsWithOptions("f*", "", sack.KnowsOptions{Glob: true, NameOnly: true}))
	assert.Equal(t, sack.Unknown, s.KnowsWithOptions("f*", "", sack.KnowsOptions{NameOnly: true}))
}

func TestRunningKernel(t *testing.T) {
	s, _, ids := newFixture(t)

	id, ok := s.RunningKernel()
	require.True(t, ok)
	assert.Equal(t, ids["kernel-old"], id)
}

func TestLoadRepoRespectsContext(t *testing.T) {
	s, _, _ := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.LoadRepo(ctx, "fedora", sack.LoadRepoOptions{})
	assert.Error(t, err)
}
