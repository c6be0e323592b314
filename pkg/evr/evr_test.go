package evr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solvable-go/dnfcore/pkg/evr"
)

func TestCmp(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"8:3.6.9-11.fc100", "8:3.6.9-11.fc100", 0},
		{"3:3.6.9-1", "8:3.6.9-1", -1},
		{"1:1.0-1", "1:1.0-2", -1},
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"2.0", "1.0", 1},
	}

	for _, c := range cases {
		got := evr.Cmp(c.a, c.b)
		assert.Equalf(t, sign(c.want), sign(got), "Cmp(%q, %q)", c.a, c.b)
	}
}

func TestCmpAntisymmetric(t *testing.T) {
	a, b := "1:2.3-4", "1:2.3-5"
	assert.Equal(t, -evr.Cmp(a, b), evr.Cmp(b, a))
}

func TestParseRoundTrip(t *testing.T) {
	parsed := evr.Parse("8:3.6.9-11.fc100")
	assert.Equal(t, "3.6.9", parsed.Version)
	assert.Equal(t, "11.fc100", parsed.Release)
	assert.NotNil(t, parsed.Epoch)
	assert.Equal(t, 8, *parsed.Epoch)
	assert.Equal(t, "8:3.6.9-11.fc100", parsed.String())
}

func TestParseNoEpoch(t *testing.T) {
	parsed := evr.Parse("3.6.9-11.fc100")
	assert.Nil(t, parsed.Epoch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
