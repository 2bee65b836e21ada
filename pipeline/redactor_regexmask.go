package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"logpipe/envelope"
)

// RegexMaskRedactor masks values whose field path matches one of a set
// of precompiled patterns. Patterns are validated at construction time
// to reject constructs that invite catastrophic backtracking: nested
// quantifiers such as (a+)+ and back-to-back wildcards (.*.* or .+.+).
// Alternation and bounded repetition ({n,m}) are not inspected. Go's RE2 engine (regexp) is
// linear-time by construction and cannot itself exhibit ReDoS, but the
// validation is kept anyway so a config author can't smuggle in a
// pattern intended for a different, backtracking engine and be
// surprised when its semantics differ under RE2.
type RegexMaskRedactor struct {
	patterns []*regexp.Regexp
}

// NewRegexMaskRedactor compiles each pattern, rejecting constructs that
// look like backtracking-engine idioms with no RE2 equivalent, and
// returns an error naming the first offending pattern.
func NewRegexMaskRedactor(patterns []string) (*RegexMaskRedactor, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if err := validateRedactionPattern(p); err != nil {
			return nil, fmt.Errorf("regex-mask pattern %q: %w", p, err)
		}
		re, err := regexp.Compile(strings.TrimPrefix(p, "!raw:"))
		if err != nil {
			return nil, fmt.Errorf("regex-mask pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &RegexMaskRedactor{patterns: compiled}, nil
}

func (r *RegexMaskRedactor) Name() string { return "regex-mask" }

func (r *RegexMaskRedactor) Redact(e *envelope.Event, guard Guardrails) *envelope.Event {
	if len(r.patterns) == 0 {
		return e
	}
	working := e.Clone()

	match := func(path string) bool {
		for _, re := range r.patterns {
			if re.MatchString(path) {
				return true
			}
		}
		return false
	}

	b := newWalkBudget(guard)
	if !walkMaskByPath(working.Data, b, 1, "data", match) {
		return e
	}
	return working
}

// validateRedactionPattern rejects a small, explicit set of
// ReDoS-inviting shapes. "escape hatch": a pattern prefixed with "!raw:"
// bypasses validation for operators who've already vetted it elsewhere;
// the prefix is stripped before the pattern is compiled.
func validateRedactionPattern(p string) error {
	if strings.HasPrefix(p, "!raw:") {
		return nil
	}
	if hasNestedQuantifier(p) {
		return fmt.Errorf("nested quantifiers are not allowed")
	}
	if strings.Contains(p, ".*.*") || strings.Contains(p, ".+.+") {
		return fmt.Errorf("wildcard repeated inside bounded repetition is not allowed")
	}
	return nil
}

// hasNestedQuantifier does a cheap textual scan for a quantifier applied
// to a group that itself ends in a quantifier, e.g. (a+)+ or (a*)*.
func hasNestedQuantifier(p string) bool {
	quant := func(c byte) bool { return c == '*' || c == '+' }
	depth := 0
	innerQuantAtDepth := map[int]bool{}
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '(':
			depth++
		case ')':
			if innerQuantAtDepth[depth] && i+1 < len(p) && quant(p[i+1]) {
				return true
			}
			innerQuantAtDepth[depth] = false
			depth--
		default:
			if quant(p[i]) && i > 0 {
				innerQuantAtDepth[depth] = true
			}
		}
	}
	return false
}
