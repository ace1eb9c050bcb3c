package capability

import (
	"regexp"
	"strings"
)

// GlobMatch implements the §4.4 resource-pattern matcher: `*` matches any
// run of characters within a path segment, `?` matches any single
// character, `{a,b}` is alternation, and the match is anchored
// (whole-pattern, whole-resource) and path-segment-aware (patterns and
// resources are split on '/' and must have the same segment count).
func GlobMatch(pattern, resource string) bool {
	pSegs := strings.Split(pattern, "/")
	rSegs := strings.Split(resource, "/")
	if len(pSegs) != len(rSegs) {
		return false
	}
	for i := range pSegs {
		if !segmentMatch(pSegs[i], rSegs[i]) {
			return false
		}
	}
	return true
}

func segmentMatch(pattern, value string) bool {
	re, err := segmentRegexp(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// segmentRegexp compiles one glob segment into an anchored regexp,
// expanding `{a,b,c}` alternation into `(a|b|c)`, `*` into `.*`, and `?`
// into `.`, with everything else treated as a literal.
func segmentRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			sb.WriteString(".*")
			i++
		case '?':
			sb.WriteString(".")
			i++
		case '{':
			end := strings.IndexByte(pattern[i:], '}')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(pattern[i:]))
				i = len(pattern)
				continue
			}
			alts := strings.Split(pattern[i+1:i+end], ",")
			for j, a := range alts {
				alts[j] = regexp.QuoteMeta(a)
			}
			sb.WriteString("(" + strings.Join(alts, "|") + ")")
			i += end + 1
		default:
			j := i
			for j < len(pattern) && pattern[j] != '*' && pattern[j] != '?' && pattern[j] != '{' {
				j++
			}
			sb.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// segmentKind classifies one canonicalized glob segment for coverage
// analysis: a deterministic normal form over literal/star/alternation
// segments, deciding coverage by structural inclusion. Every other
// segment, `**` included, is kindOther.
type segmentKind int

const (
	kindLiteral segmentKind = iota
	kindStar
	kindAlternation
	kindOther // contains '?' or a mix the validator cannot prove coverage for
)

func classifySegment(seg string) (segmentKind, []string) {
	if seg == "*" {
		return kindStar, nil
	}
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && !strings.ContainsAny(seg[1:len(seg)-1], "{}*?") {
		alts := strings.Split(seg[1:len(seg)-1], ",")
		return kindAlternation, alts
	}
	if !strings.ContainsAny(seg, "*?{}") {
		return kindLiteral, []string{seg}
	}
	return kindOther, nil
}

// PatternCovers decides whether every resource string matching `specific`
// also matches `general` — the "covers" relation the Validator uses to
// check declared ⊆ granted. It is a structural, not a semantic, decision:
// undecidable segment pairs deny, erring toward rejection whenever
// coverage cannot be proven.
func PatternCovers(general, specific string) bool {
	gSegs := strings.Split(general, "/")
	sSegs := strings.Split(specific, "/")
	if len(gSegs) != len(sSegs) {
		return false
	}
	for i := range gSegs {
		if !segmentCovers(gSegs[i], sSegs[i]) {
			return false
		}
	}
	return true
}

func segmentCovers(general, specific string) bool {
	if general == specific {
		return true
	}
	gKind, gAlts := classifySegment(general)
	sKind, sAlts := classifySegment(specific)

	// A bare "*" segment covers any decidable specific segment (literal or
	// alternation); it does not cover another "*" or an undecidable
	// segment pair beyond trivial equality, which is already handled above.
	if gKind == kindStar {
		return sKind == kindLiteral || sKind == kindAlternation
	}

	if gKind == kindAlternation {
		switch sKind {
		case kindLiteral:
			return containsString(gAlts, sAlts[0])
		case kindAlternation:
			return isSubset(sAlts, gAlts)
		default:
			return false
		}
	}

	// gKind is literal or other: only an exact literal match of an
	// identical value is provably covered (handled by the equality check
	// above); anything else is undecidable.
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func isSubset(sub, super []string) bool {
	for _, s := range sub {
		if !containsString(super, s) {
			return false
		}
	}
	return true
}
