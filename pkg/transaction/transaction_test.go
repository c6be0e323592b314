package transaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/goal"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/reasonstore"
	"github.com/solvable-go/dnfcore/pkg/rpmruntime/fake"
	"github.com/solvable-go/dnfcore/pkg/sack"
	"github.com/solvable-go/dnfcore/pkg/solver"
	"github.com/solvable-go/dnfcore/pkg/solver/naive"
	"github.com/solvable-go/dnfcore/pkg/transaction"

	"github.com/spf13/afero"
)

type fakeRepoInfo struct {
	paths map[pool.ID]string
	gpg   map[pool.ID]bool
	sizes map[pool.ID]int64
}

func newFakeRepoInfo() *fakeRepoInfo {
	return &fakeRepoInfo{
		paths: map[pool.ID]string{},
		gpg:   map[pool.ID]bool{},
		sizes: map[pool.ID]int64{},
	}
}

func (f *fakeRepoInfo) CachedPath(id pool.ID) (string, bool) {
	p, ok := f.paths[id]
	return p, ok
}

func (f *fakeRepoInfo) GPGCheck(id pool.ID) bool { return f.gpg[id] }
func (f *fakeRepoInfo) Size(id pool.ID) int64    { return f.sizes[id] }

type fakeKeyring struct{ valid bool }

func (k fakeKeyring) Verify(string) (bool, error) { return k.valid, nil }

func newSolverFactory(p pool.Pool) func([]pool.ID) solver.Solver {
	return func(installed []pool.ID) solver.Solver {
		return naive.New(p, installed)
	}
}

func TestCommitInstallsAndWritesReason(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true, GPGCheck: false})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	repos := newFakeRepoInfo()
	repos.paths[fooID] = "/var/cache/dnf/fedora/packages/foo-1.0-1.x86_64.rpm"
	repos.sizes[fooID] = 1024

	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")
	rt := fake.New()

	d := transaction.New(s, rt, store, fakeKeyring{valid: true}, repos, 0, transaction.FlagNone, "/var/cache/dnf", "40")

	require.NoError(t, d.Depsolve(g))
	require.NoError(t, d.Commit(context.Background(), g))

	assert.True(t, rt.Ordered())
	require.Len(t, rt.Installs, 1)
	assert.Equal(t, "foo-1.0-1.x86_64", rt.Installs[0].PackageID)

	reason, ok, err := store.Get("foo-1.0-1.x86_64", reasonstore.Reason)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user", reason)
}

func TestCommitRejectsInvalidSignatureWhenGPGCheckEnabled(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true, GPGCheck: true})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	repos := newFakeRepoInfo()
	repos.paths[fooID] = "/var/cache/dnf/fedora/packages/foo-1.0-1.x86_64.rpm"
	repos.gpg[fooID] = true

	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")
	rt := fake.New()

	d := transaction.New(s, rt, store, fakeKeyring{valid: false}, repos, 0, transaction.FlagNone, "/var/cache/dnf", "40")

	require.NoError(t, d.Depsolve(g))
	err = d.Commit(context.Background(), g)
	require.Error(t, err)
}

func TestCommitIgnoresInvalidSignatureWhenGPGCheckDisabled(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true, GPGCheck: false})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	repos := newFakeRepoInfo()
	repos.paths[fooID] = "/var/cache/dnf/fedora/packages/foo-1.0-1.x86_64.rpm"

	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")
	rt := fake.New()

	d := transaction.New(s, rt, store, fakeKeyring{valid: false}, repos, 0, transaction.FlagNone, "/var/cache/dnf", "40")

	require.NoError(t, d.Depsolve(g))
	require.NoError(t, d.Commit(context.Background(), g))
}

func TestDownloadQueueSkipsCachedPackages(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	repos := newFakeRepoInfo()
	// no cached path registered: should land in the download queue.

	store := reasonstore.New(afero.NewMemMapFs(), "/var/lib/dnf/yumdb")
	rt := fake.New()
	d := transaction.New(s, rt, store, fakeKeyring{valid: true}, repos, 0, transaction.FlagNone, "/var/cache/dnf", "40")

	require.NoError(t, d.Depsolve(g))
	assert.Contains(t, d.PackagesToDownload(), fooID)
}
