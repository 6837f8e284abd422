package scim

import (
	"errors"
	"strings"
)

// ErrUnsupportedFilter reports a filter expression outside the
// supported subset. List handlers deliberately fall back to an
// unfiltered query in that case rather than failing the request.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Predicate is the parsed form of the single comparison filter this
// service supports: `attribute eq "value"`.
type Predicate struct {
	Attribute string
	Operator  string
	Value     string
}

// ParseFilter parses a SCIM filter expression of the exact shape
// `attribute eq "value"` (three whitespace-separated tokens, value
// optionally quoted). Logical combinators, other operators and
// multi-term expressions yield ErrUnsupportedFilter.
func ParseFilter(filter string) (*Predicate, error) {
	parts := strings.SplitN(strings.TrimSpace(filter), " ", 3)
	if len(parts) != 3 {
		return nil, ErrUnsupportedFilter
	}

	attr, op, value := parts[0], parts[1], strings.TrimSpace(parts[2])
	if !strings.EqualFold(op, "eq") {
		return nil, ErrUnsupportedFilter
	}
	if strings.ContainsAny(attr, "()[]") {
		return nil, ErrUnsupportedFilter
	}

	if strings.HasPrefix(value, `"`) {
		if len(value) < 2 || !strings.HasSuffix(value, `"`) {
			return nil, ErrUnsupportedFilter
		}
		value = value[1 : len(value)-1]
		// A quote inside the unquoted value means the expression kept
		// going after the closing quote, e.g. `... eq "a" and ...`.
		if strings.Contains(value, `"`) {
			return nil, ErrUnsupportedFilter
		}
	} else if strings.ContainsAny(value, " \t") {
		return nil, ErrUnsupportedFilter
	}

	return &Predicate{Attribute: attr, Operator: "eq", Value: value}, nil
}
