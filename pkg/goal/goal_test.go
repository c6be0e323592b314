package goal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/goal"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/sack"
	"github.com/solvable-go/dnfcore/pkg/solver"
	"github.com/solvable-go/dnfcore/pkg/solver/naive"
)

func newSolverFactory(p pool.Pool) func([]pool.ID) solver.Solver {
	return func(installed []pool.ID) solver.Solver {
		return naive.New(p, installed)
	}
}

func TestInstallRunProducesTransaction(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	problems, err := g.Run(goal.RunNone)
	require.NoError(t, err)
	assert.Equal(t, 0, problems)
	assert.Contains(t, g.ListInstalls(), fooID)
}

func TestProtectedRemovalFails(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: pool.SystemRepo, Installed: true, Enabled: true})

	criticalID := p.NewSolvable(pool.SystemRepo, "critical", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Protect(criticalID)
	g.Erase(criticalID, goal.EraseNone)

	problems, err := g.Run(goal.RunNone)
	require.Error(t, err)
	assert.True(t, problems >= 1)
	assert.Contains(t, g.DescribeProblem(problems-1), "protected")
}

func TestReasonUserForDirectInstall(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})
	fooID := p.NewSolvable("fedora", "foo", "1.0-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	g := goal.New(s, newSolverFactory(p))
	g.Install(fooID)

	_, err = g.Run(goal.RunNone)
	require.NoError(t, err)

	assert.Equal(t, goal.ReasonUser, g.Reason(fooID))
}

func TestInstallOnlyLimitErasesOverflow(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: pool.SystemRepo, Installed: true, Enabled: true})
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	k1 := p.NewSolvable(pool.SystemRepo, "kernel", "5.0-1", "x86_64").Add()
	k2 := p.NewSolvable(pool.SystemRepo, "kernel", "5.1-1", "x86_64").Add()
	k3 := p.NewSolvable("fedora", "kernel", "5.2-1", "x86_64").Add()

	s, err := sack.New(p, sack.Options{Arch: "x86_64"})
	require.NoError(t, err)

	s.SetInstallOnly([]string{"kernel"})
	s.SetInstallOnlyLimit(2)

	g := goal.New(s, newSolverFactory(p))
	g.Install(k3)

	problems, err := g.Run(goal.RunNone)
	require.NoError(t, err)
	assert.Equal(t, 0, problems)

	kernel, ok := s.RunningKernel()
	require.True(t, ok)
	assert.Equal(t, k2, kernel, "running kernel is the highest-EVR installed kernel")

	erased := g.ListErasures()
	require.Len(t, erased, 1)
	assert.Equal(t, k1, erased[0], "the oldest, non-running kernel is the one erased")
	assert.NotContains(t, erased, kernel, "the running kernel is never erased")
	assert.NotContains(t, erased, k3, "the newly installed kernel is kept, not erased")
}
