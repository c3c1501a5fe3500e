package typesync

import (
	"fmt"
	"regexp"
	"strings"
)

// Segment is one element of a rule's URL trace: either literal text or a
// named argument placeholder with its converter.
type Segment struct {
	// Literal is the raw text of a literal segment, empty for arguments.
	Literal string

	// Arg is the argument name of a placeholder segment, empty for literals.
	Arg string

	// Converter is the converter name of a placeholder segment. Defaults to
	// "str" when the rule does not specify one.
	Converter string
}

// IsArg reports whether the segment is a named argument placeholder.
func (s Segment) IsArg() bool { return s.Arg != "" }

// Rule is a parsed URL rule such as "/users/<int:id>/posts/<slug>".
type Rule struct {
	// Raw is the rule string as written.
	Raw string

	// Trace is the ordered sequence of literal and argument segments.
	Trace []Segment
}

var placeholderRe = regexp.MustCompile(`<(?:([a-zA-Z_][a-zA-Z0-9_]*):)?([a-zA-Z_][a-zA-Z0-9_]*)>`)

// ParseRule parses a Flask-style URL rule into its segment trace. Arguments
// are written as <name> or <converter:name>; everything else is literal.
func ParseRule(raw string) (*Rule, error) {
	rule := &Rule{Raw: raw}
	seen := make(map[string]bool)

	rest := raw
	for len(rest) > 0 {
		loc := placeholderRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			if strings.ContainsAny(rest, "<>") {
				return nil, fmt.Errorf("malformed rule %q: unbalanced placeholder", raw)
			}
			rule.Trace = append(rule.Trace, Segment{Literal: rest})
			break
		}
		if loc[0] > 0 {
			lit := rest[:loc[0]]
			if strings.ContainsAny(lit, "<>") {
				return nil, fmt.Errorf("malformed rule %q: unbalanced placeholder", raw)
			}
			rule.Trace = append(rule.Trace, Segment{Literal: lit})
		}

		conv := "str"
		if loc[2] >= 0 {
			conv = rest[loc[2]:loc[3]]
		}
		arg := rest[loc[4]:loc[5]]
		if seen[arg] {
			return nil, fmt.Errorf("malformed rule %q: duplicate argument %q", raw, arg)
		}
		seen[arg] = true

		rule.Trace = append(rule.Trace, Segment{Arg: arg, Converter: conv})
		rest = rest[loc[1]:]
	}

	return rule, nil
}

// Arguments returns the rule's argument names in order of appearance.
func (r *Rule) Arguments() []string {
	var args []string
	for _, s := range r.Trace {
		if s.IsArg() {
			args = append(args, s.Arg)
		}
	}
	return args
}

// ConverterFor returns the converter name declared for an argument.
func (r *Rule) ConverterFor(arg string) (string, bool) {
	for _, s := range r.Trace {
		if s.Arg == arg {
			return s.Converter, true
		}
	}
	return "", false
}

// Template renders the rule with bare <name> placeholders, the form the
// generated client's buildUrl substitutes into.
func (r *Rule) Template() string {
	var b strings.Builder
	for _, s := range r.Trace {
		if s.IsArg() {
			b.WriteString("<")
			b.WriteString(s.Arg)
			b.WriteString(">")
		} else {
			b.WriteString(s.Literal)
		}
	}
	return b.String()
}

// pattern compiles the rule into a regular expression using the registered
// converters' segment patterns. Returns the expression and the ordered
// argument names captured by it.
func (r *Rule) pattern(converters map[string]Converter) (*regexp.Regexp, []string, error) {
	var b strings.Builder
	b.WriteString("^")
	var args []string
	for _, s := range r.Trace {
		if !s.IsArg() {
			b.WriteString(regexp.QuoteMeta(s.Literal))
			continue
		}
		conv, ok := converters[s.Converter]
		if !ok {
			return nil, nil, fmt.Errorf("rule %q: unknown converter %q", r.Raw, s.Converter)
		}
		fmt.Fprintf(&b, "(%s)", conv.Regex())
		args = append(args, s.Arg)
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, nil, fmt.Errorf("rule %q: %w", r.Raw, err)
	}
	return re, args, nil
}
