package cmp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solvable-go/dnfcore/pkg/cmp"
)

func TestHas(t *testing.T) {
	f := cmp.GT | cmp.EQ
	assert.True(t, f.Has(cmp.GT))
	assert.True(t, f.Has(cmp.EQ))
	assert.True(t, f.Has(cmp.GT|cmp.EQ))
	assert.False(t, f.Has(cmp.LT))
}

func TestAny(t *testing.T) {
	f := cmp.SUBSTR | cmp.ICASE
	assert.True(t, f.Any(cmp.SUBSTR|cmp.GLOB))
	assert.False(t, f.Any(cmp.GT|cmp.LT))
}

func TestString(t *testing.T) {
	assert.Equal(t, "NONE", cmp.Flag(0).String())
	assert.Equal(t, "EQ", cmp.EQ.String())
	assert.Equal(t, "EQ|GT", (cmp.EQ | cmp.GT).String())
}
