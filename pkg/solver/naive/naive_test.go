package naive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/pool/memory"
	"github.com/solvable-go/dnfcore/pkg/solver"
	"github.com/solvable-go/dnfcore/pkg/solver/naive"
)

func TestInstallPullsInRequires(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	libID := p.NewSolvable("fedora", "libfoo", "1.0-1", "x86_64").Add()
	appID := p.NewSolvable("fedora", "app", "1.0-1", "x86_64").
		Requires(pool.Reldep{Name: "libfoo"}).
		Add()

	sv := naive.New(p, nil)
	problems, err := sv.Solve([]solver.Job{{Flags: solver.JobSolvable | solver.JobInstall, Operand: appID}})
	require.NoError(t, err)
	assert.Equal(t, 0, problems)

	steps := sv.CreateTransaction()
	var installed []pool.ID
	for _, st := range steps {
		if st.Type == solver.StepInstall {
			installed = append(installed, st.Package)
		}
	}
	assert.Contains(t, installed, appID)
	assert.Contains(t, installed, libID)
}

func TestMissingRequireIsAProblem(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: "fedora", Enabled: true})

	appID := p.NewSolvable("fedora", "app", "1.0-1", "x86_64").
		Requires(pool.Reldep{Name: "nonexistent"}).
		Add()

	sv := naive.New(p, nil)
	problems, err := sv.Solve([]solver.Job{{Flags: solver.JobSolvable | solver.JobInstall, Operand: appID}})
	require.NoError(t, err)
	assert.Equal(t, 1, problems)
	assert.Contains(t, sv.DescribeProblem(0), "nonexistent")
}

func TestEraseWithCleandepsCascades(t *testing.T) {
	p := memory.New()
	p.AddRepo(pool.Repo{Name: pool.SystemRepo, Installed: true, Enabled: true})

	libID := p.NewSolvable(pool.SystemRepo, "libfoo", "1.0-1", "x86_64").Add()
	appID := p.NewSolvable(pool.SystemRepo, "app", "1.0-1", "x86_64").
		Requires(pool.Reldep{Name: "libfoo"}).
		Add()

	sv := naive.New(p, []pool.ID{libID, appID})
	_, err := sv.Solve([]solver.Job{
		{Flags: solver.JobSolvable | solver.JobErase | solver.JobCleandeps, Operand: libID},
	})
	require.NoError(t, err)

	steps := sv.CreateTransaction()
	var erased []pool.ID
	for _, st := range steps {
		if st.Type == solver.StepErase {
			erased = append(erased, st.Package)
		}
	}
	assert.Contains(t, erased, libID)
	assert.Contains(t, erased, appID)
}
