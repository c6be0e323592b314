// Package subject parses a user-typed token into an ordered, lazy
// sequence of NEVRA/reldep possibilities — the way a shell command like
// "install foo-1.2-3.x86_64" or "install foo>=1.2" gets turned into
// candidate lookups against a sack, most specific form first.
package subject

import (
	"regexp"
	"strings"

	"github.com/solvable-go/dnfcore/pkg/cmp"
	"github.com/solvable-go/dnfcore/pkg/reldep"
)

// FormKind names which NEVRA-family form (or reldep) a Possibility was
// parsed as.
type FormKind int

const (
	FormNEVRA FormKind = iota
	FormNEVR
	FormNEV
	FormNA
	FormN
	FormReldep
)

// Possibility is one parse of a Subject token: either a NEVRA-family
// decomposition or a reldep expression, tagged with the form that
// produced it.
type Possibility struct {
	Kind FormKind

	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string

	Reldep reldep.Reldep
}

var (
	// name excludes ':' throughout: rpm reserves the colon as the epoch
	// separator, so no valid package name can contain one. Without this
	// a greedy name capture can swallow an epoch-bearing NEVR/NEVRA's
	// "N:V" boundary and produce a spurious NEV or NA possibility for
	// input that's really only a NEVRA.
	archSuffix  = `(?:\.(?P<arch>[a-zA-Z0-9_]+))`
	evrCore     = `(?:(?P<epoch>[0-9]+):)?(?P<version>[^-:\s]+)-(?P<release>[^-:\s]+)`
	nevraRe     = regexp.MustCompile(`^(?P<name>[^:]+)-` + evrCore + archSuffix + `$`)
	nevrRe      = regexp.MustCompile(`^(?P<name>[^:]+)-` + evrCore + `$`)
	nevRe       = regexp.MustCompile(`^(?P<name>[^:]+)-(?:(?P<epoch>[0-9]+):)?(?P<version>[^-:\s]+)$`)
	naRe        = regexp.MustCompile(`^(?P<name>[^:]+)\.(?P<arch>[a-zA-Z0-9_]+)$`)
	reldepOpsRe = regexp.MustCompile(`>=|<=|==|!=|>|<|=`)
)

// Subject wraps a raw user token and lazily enumerates its possibilities.
type Subject struct {
	token string
}

// New wraps token for parsing.
func New(token string) *Subject { return &Subject{token: token} }

// Possibilities enumerates every parse that matches, in the fixed
// regular-expression alternative order: NEVRA, NEVR, NEV, NA, N, then the
// reldep form. Ambiguous inputs yield multiple possibilities; the caller
// is expected to pick the first that exists in its sack.
func (s *Subject) Possibilities() []Possibility {
	var out []Possibility

	if m := matchNamed(nevraRe, s.token); m != nil {
		out = append(out, Possibility{
			Kind: FormNEVRA, Name: m["name"], Epoch: m["epoch"],
			Version: m["version"], Release: m["release"], Arch: m["arch"],
		})
	}

	if m := matchNamed(nevrRe, s.token); m != nil {
		out = append(out, Possibility{
			Kind: FormNEVR, Name: m["name"], Epoch: m["epoch"],
			Version: m["version"], Release: m["release"],
		})
	}

	if m := matchNamed(nevRe, s.token); m != nil {
		out = append(out, Possibility{
			Kind: FormNEV, Name: m["name"], Epoch: m["epoch"], Version: m["version"],
		})
	}

	if m := matchNamed(naRe, s.token); m != nil {
		out = append(out, Possibility{Kind: FormNA, Name: m["name"], Arch: m["arch"]})
	}

	// The bare-name fallback is a name candidate like any other: it's
	// rejected on the same "no colon" ground as the NEVRA-family forms
	// above, since a colon can only ever be the epoch separator, never
	// part of a name. An epoch-bearing token so only ever yields its
	// NEVRA-family decompositions, never a bare-name possibility too.
	if !strings.Contains(s.token, ":") {
		out = append(out, Possibility{Kind: FormN, Name: s.token})
	}

	if reldepOpsRe.MatchString(s.token) {
		if rd, err := reldep.Parse(s.token); err == nil && rd.Op != cmp.Flag(0) {
			out = append(out, Possibility{Kind: FormReldep, Reldep: rd})
		}
	}

	return out
}

func matchNamed(re *regexp.Regexp, s string) map[string]string {
	match := re.FindStringSubmatch(s)
	if match == nil {
		return nil
	}

	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || match[i] == "" {
			continue
		}
		out[name] = match[i]
	}
	return out
}
