package scim

import (
	"errors"
	"testing"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		attr    string
		subAttr string
		filter  *Predicate
	}{
		{"empty", "", "", "", nil},
		{"simple attribute", "displayName", "displayName", "", nil},
		{"members", "members", "members", "", nil},
		{"sub attribute", "name.givenName", "name", "givenName", nil},
		{"value filter", `members[value eq "42"]`, "members", "", &Predicate{Attribute: "value", Operator: "eq", Value: "42"}},
		{"filter and sub attribute", `members[value eq "42"].display`, "members", "display", &Predicate{Attribute: "value", Operator: "eq", Value: "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tt.path, err)
			}
			if path.Attribute != tt.attr {
				t.Errorf("Expected attribute %q, got %q", tt.attr, path.Attribute)
			}
			if path.SubAttribute != tt.subAttr {
				t.Errorf("Expected sub-attribute %q, got %q", tt.subAttr, path.SubAttribute)
			}
			if tt.filter == nil {
				if path.Filter != nil {
					t.Errorf("Expected no filter, got %+v", path.Filter)
				}
			} else {
				if path.Filter == nil {
					t.Fatalf("Expected filter, got nil")
				}
				if *path.Filter != *tt.filter {
					t.Errorf("Expected filter %+v, got %+v", tt.filter, path.Filter)
				}
			}
		})
	}
}

func TestParsePathInvalid(t *testing.T) {
	paths := []string{
		`members[`,
		`members[value eq "42"`,
		`members[value eq 42]`,
		`members[value co "42"]`,
		`members[value eq "unterminated]`,
		`members[eq "42"]`,
		`members.`,
		`.givenName`,
		`members[value eq "42"]extra`,
	}

	for _, p := range paths {
		_, err := ParsePath(p)
		if err == nil {
			t.Errorf("ParsePath(%q): expected error, got nil", p)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("ParsePath(%q): expected ValidationError, got %v", p, err)
		}
	}
}
