package scim

import (
	"fmt"
	"strings"
)

// Path is the parsed form of a PATCH operation path. The supported
// grammar is the subset provisioning clients actually send:
//
//	path        = attribute [ "[" valueFilter "]" ] [ "." subAttr ]
//	valueFilter = attribute SP "eq" SP quotedValue
//
// e.g. `displayName`, `members`, `members[value eq "42"]`,
// `name.givenName`. Anything else is a validation error; unlike
// unknown-but-well-formed paths, unparseable input is never silently
// skipped.
type Path struct {
	Attribute    string
	SubAttribute string
	Filter       *Predicate
}

// ParsePath parses a PATCH operation path. The empty path is valid
// and means the operation value carries the attributes to update.
func ParsePath(s string) (*Path, error) {
	if s == "" {
		return &Path{}, nil
	}

	p := &pathParser{input: s}
	attr, err := p.ident()
	if err != nil {
		return nil, err
	}
	path := &Path{Attribute: attr}

	if p.peek() == '[' {
		p.pos++
		filter, err := p.valueFilter()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		path.Filter = filter
	}

	if p.peek() == '.' {
		p.pos++
		sub, err := p.ident()
		if err != nil {
			return nil, err
		}
		path.SubAttribute = sub
	}

	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos:])
	}
	return path, nil
}

// pathParser is a hand-rolled scanner over a path expression. It
// exists so malformed paths are rejected up front instead of being
// pattern-matched leniently.
type pathParser struct {
	input string
	pos   int
}

func (p *pathParser) errorf(format string, args ...interface{}) error {
	return &ValidationError{
		Detail: fmt.Sprintf("invalid path %q: ", p.input) + fmt.Sprintf(format, args...),
	}
}

func (p *pathParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *pathParser) expect(ch byte) error {
	if p.peek() != ch {
		return p.errorf("expected %q", string(ch))
	}
	p.pos++
	return nil
}

func (p *pathParser) skipSpaces() {
	for p.peek() == ' ' {
		p.pos++
	}
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '$'
}

func (p *pathParser) ident() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentByte(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected attribute name at offset %d", start)
	}
	return p.input[start:p.pos], nil
}

func (p *pathParser) quoted() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", p.errorf("unterminated string")
	}
	value := p.input[start:p.pos]
	p.pos++
	return value, nil
}

// valueFilter parses the bracketed selector `attribute eq "value"`.
// Only the eq operator exists in this slice of the grammar.
func (p *pathParser) valueFilter() (*Predicate, error) {
	attr, err := p.ident()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	op, err := p.ident()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(op, "eq") {
		return nil, p.errorf("unsupported operator %q", op)
	}
	p.skipSpaces()
	value, err := p.quoted()
	if err != nil {
		return nil, err
	}
	return &Predicate{Attribute: attr, Operator: "eq", Value: value}, nil
}
