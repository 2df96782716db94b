// Package dataconn parses and resolves the dotted field paths used by
// data connections: "workload.section.field" addresses a field of a
// workload's config/input/output struct, and the 4-token
// "workload.section.field.subfield" extension addresses one field
// inside a blackboard reached through a pointer-typed struct field, or
// one field of a registered struct-typed field — support the legacy
// 3-token original never had.
package dataconn

import (
	"fmt"
	"strings"
)

// Section names the portion of a workload struct a field path refers
// to.
type Section string

const (
	SectionConfig  Section = "config"
	SectionInputs  Section = "inputs"
	SectionOutputs Section = "outputs"
)

func isValidSection(s string) bool {
	switch Section(s) {
	case SectionConfig, SectionInputs, SectionOutputs:
		return true
	default:
		return false
	}
}

// Path is a parsed field path: which workload, which section, which
// field, and (for a 4-token path) which sub-field of that field.
type Path struct {
	WorkloadName string
	Section      Section
	Field        string
	SubField     string // empty unless the path has 4 tokens
}

// HasSubField reports whether the path addresses a sub-field (a
// blackboard field or a registered struct's field).
func (p Path) HasSubField() bool { return p.SubField != "" }

func (p Path) String() string {
	if p.HasSubField() {
		return fmt.Sprintf("%s.%s.%s.%s", p.WorkloadName, p.Section, p.Field, p.SubField)
	}
	return fmt.Sprintf("%s.%s.%s", p.WorkloadName, p.Section, p.Field)
}

// ParsePath parses a raw dotted field path into its components. It
// accepts exactly 3 tokens ("workload.section.field") or exactly 4
// ("workload.section.field.subfield"); any other token count, an empty
// segment, or an unrecognized section name is reported as an error.
func ParsePath(raw string) (Path, error) {
	tokens := strings.Split(raw, ".")
	for _, tok := range tokens {
		if tok == "" {
			return Path{}, fmt.Errorf("dataconn: empty segment in field path %q", raw)
		}
	}

	switch len(tokens) {
	case 3:
		if !isValidSection(tokens[1]) {
			return Path{}, fmt.Errorf("dataconn: invalid section %q in path %q", tokens[1], raw)
		}
		return Path{WorkloadName: tokens[0], Section: Section(tokens[1]), Field: tokens[2]}, nil
	case 4:
		if !isValidSection(tokens[1]) {
			return Path{}, fmt.Errorf("dataconn: invalid section %q in path %q", tokens[1], raw)
		}
		return Path{WorkloadName: tokens[0], Section: Section(tokens[1]), Field: tokens[2], SubField: tokens[3]}, nil
	default:
		return Path{}, fmt.Errorf("dataconn: expected format workload.section.field[.subfield]: %q", raw)
	}
}
