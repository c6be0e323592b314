package reldep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/pool"
	"github.com/solvable-go/dnfcore/pkg/reldep"
)

func TestParseBareName(t *testing.T) {
	rd, err := reldep.Parse("foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", rd.Name)
	assert.Equal(t, cmp.Flag(0), rd.Op)
}

func TestParseWithOperator(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		evrWant  string
		wantFlag cmp.Flag
	}{
		{"foo >= 1.2-3", "foo", "1.2-3", cmp.GT | cmp.EQ},
		{"foo<=2.0", "foo", "2.0", cmp.LT | cmp.EQ},
		{"foo == 1", "foo", "1", cmp.EQ},
		{"foo != 1", "foo", "1", cmp.NEQ},
		{"foo>1", "foo", "1", cmp.GT},
	}

	for _, c := range cases {
		rd, err := reldep.Parse(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.name, rd.Name, c.in)
		assert.Equal(t, c.evrWant, rd.EVR, c.in)
		assert.Equal(t, c.wantFlag, rd.Op, c.in)
	}
}

func TestParseEmptyFails(t *testing.T) {
	_, err := reldep.Parse("   ")
	assert.Error(t, err)
}

func TestSatisfies(t *testing.T) {
	rd, err := reldep.Parse("foo >= 1.2-3")
	require.NoError(t, err)

	assert.True(t, rd.Satisfies("foo", "1.2-3"))
	assert.True(t, rd.Satisfies("foo", "2.0-1"))
	assert.False(t, rd.Satisfies("foo", "1.0-1"))
	assert.False(t, rd.Satisfies("bar", "9.9-9"))
}

func TestStringRoundTrip(t *testing.T) {
	rd, err := reldep.Parse("foo >= 1.2-3")
	require.NoError(t, err)
	assert.Equal(t, "foo >= 1.2-3", rd.String())

	bare, err := reldep.Parse("bar")
	require.NoError(t, err)
	assert.Equal(t, "bar", bare.String())
}

func TestToPoolFromPoolRoundTrip(t *testing.T) {
	rd, err := reldep.Parse("foo >= 1.2-3")
	require.NoError(t, err)

	pr := rd.ToPool()
	assert.Equal(t, "foo", pr.Name)
	assert.Equal(t, pool.OpGT|pool.OpEQ, pr.Op)
	assert.Equal(t, "1.2-3", pr.EVR)

	back := reldep.FromPool(pr)
	assert.Equal(t, rd, back)
}
