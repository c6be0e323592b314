// Package evr implements RPM's Epoch-Version-Release comparison algorithm.
//
// No third-party library in the dependency pack implements this specific
// ordering: Masterminds/semver and the pack's go-pep440-version /
// go-deb-version packages compare different version grammars (semver,
// PEP 440, Debian) whose segment and tilde/caret rules diverge from RPM's.
// Grounded on the algorithm documented by rpm itself (segment-wise,
// alnum-vs-digit aware comparison with a leading tilde sorting below
// everything, including the empty string).
package evr

import "strings"

// EVR is a parsed Epoch-Version-Release triple. Epoch is a pointer so an
// absent epoch (stored as -1 in the solvable pool) can be distinguished
// from an explicit epoch of 0.
type EVR struct {
	Epoch   *int
	Version string
	Release string
}

// Parse splits a "[e:]v-r" string into its components. A missing epoch
// yields Epoch == nil.
func Parse(s string) EVR {
	var evr EVR

	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		e := parseEpoch(s[:idx])
		evr.Epoch = &e
		s = s[idx+1:]
	}

	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		evr.Version = s[:idx]
		evr.Release = s[idx+1:]
	} else {
		evr.Version = s
	}

	return evr
}

func parseEpoch(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// String renders the canonical "[e:]v-r" form, omitting the epoch when
// absent and the release when empty (NEV with no release segment).
func (e EVR) String() string {
	var sb strings.Builder

	if e.Epoch != nil {
		sb.WriteString(itoa(*e.Epoch))
		sb.WriteByte(':')
	}

	sb.WriteString(e.Version)

	if e.Release != "" {
		sb.WriteByte('-')
		sb.WriteString(e.Release)
	}

	return sb.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

func epochValue(e *int) int {
	if e == nil {
		return -1
	}
	return *e
}

// Cmp implements RPM's total order over EVR strings: epoch compares
// numerically first (an absent epoch compares as 0), then Version and
// Release compare segment-wise via CompareSegment.
func Cmp(a, b string) int {
	return CompareEVR(Parse(a), Parse(b))
}

// CompareEVR compares two already-parsed EVRs.
func CompareEVR(a, b EVR) int {
	ea, eb := epochValue(a.Epoch), epochValue(b.Epoch)
	if ea == -1 {
		ea = 0
	}
	if eb == -1 {
		eb = 0
	}

	if ea != eb {
		if ea < eb {
			return -1
		}
		return 1
	}

	if c := CompareSegment(a.Version, b.Version); c != 0 {
		return c
	}

	return CompareSegment(a.Release, b.Release)
}

// CompareSegment compares one dotted/dashed version or release segment
// following RPM's algorithm: strings are split into runs of digits and
// runs of alphabetics (all other characters are separator noise and are
// skipped), numeric runs compare numerically (with leading zeros
// stripped), alphabetic runs compare byte-wise, a numeric run always
// outranks an alphabetic one, a leading '~' makes a segment sort before
// everything (even the empty string), and a leading '^' makes it sort
// after the end of the string but before any other remaining segment.
func CompareSegment(a, b string) int {
	for {
		a = skipSeparators(a)
		b = skipSeparators(b)

		if strings.HasPrefix(a, "~") || strings.HasPrefix(b, "~") {
			aTilde := strings.HasPrefix(a, "~")
			bTilde := strings.HasPrefix(b, "~")
			switch {
			case aTilde && !bTilde:
				return -1
			case !aTilde && bTilde:
				return 1
			}
			a = a[1:]
			b = b[1:]
			continue
		}

		if a == "" && b == "" {
			return 0
		}

		if strings.HasPrefix(a, "^") || strings.HasPrefix(b, "^") {
			aCaret := strings.HasPrefix(a, "^")
			bCaret := strings.HasPrefix(b, "^")
			switch {
			case a == "" && bCaret:
				return -1
			case aCaret && b == "":
				return 1
			case aCaret && !bCaret:
				return -1
			case !aCaret && bCaret:
				return 1
			}
			a = a[1:]
			b = b[1:]
			continue
		}

		if a == "" || b == "" {
			if a == "" {
				return -1
			}
			return 1
		}

		aDigits := isDigit(a[0])
		bDigits := isDigit(b[0])

		var aTok, bTok string

		if aDigits {
			aTok, a = takeWhile(a, isDigit)
		} else {
			aTok, a = takeWhile(a, isAlpha)
		}

		if bDigits {
			bTok, b = takeWhile(b, isDigit)
		} else {
			bTok, b = takeWhile(b, isAlpha)
		}

		if aDigits != bDigits {
			if aDigits {
				return 1
			}
			return -1
		}

		var c int
		if aDigits {
			c = compareNumeric(aTok, bTok)
		} else {
			c = strings.Compare(aTok, bTok)
		}

		if c != 0 {
			if c < 0 {
				return -1
			}
			return 1
		}
	}
}

func skipSeparators(s string) string {
	i := 0
	for i < len(s) && !isDigit(s[i]) && !isAlpha(s[i]) && s[i] != '~' && s[i] != '^' {
		i++
	}
	return s[i:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func takeWhile(s string, pred func(byte) bool) (tok, rest string) {
	i := 0
	for i < len(s) && pred(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}

	return strings.Compare(a, b)
}
