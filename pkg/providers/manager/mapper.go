package manager

import (
	"fmt"
	"strings"

	"github.com/testshift/testshift/pkg/canonical"
)

// Well-known property-bag field names. Lookup is case-insensitive; writes
// always use these spellings.
const (
	propPriority     = "Priority"
	propStatus       = "Status"
	propObjective    = "Objective"
	propPrecondition = "Precondition"
)

var wellKnownProps = map[string]bool{
	strings.ToLower(propPriority):     true,
	strings.ToLower(propStatus):       true,
	strings.ToLower(propObjective):    true,
	strings.ToLower(propPrecondition): true,
}

// FromCanonical converts a canonical test case to the Manager wire shape.
// moduleID is the target folder id, 0 for no folder assignment. Fields the
// product cannot store (attachment payloads, the opaque source id) are
// dropped; that is lossy by design, not an error.
func FromCanonical(tc canonical.TestCase, moduleID int64) TestCase {
	out := TestCase{
		Name:        tc.Name,
		Description: tc.Description,
		ModuleID:    moduleID,
	}

	out.Properties = appendProperty(out.Properties, propPriority, canonical.ProductPriority(tc.Priority), "")
	out.Properties = appendProperty(out.Properties, propStatus, canonical.ProductStatus(tc.Status), "")
	if tc.Objective != "" {
		out.Properties = appendProperty(out.Properties, propObjective, tc.Objective, "")
	}
	if tc.Precondition != "" {
		out.Properties = appendProperty(out.Properties, propPrecondition, tc.Precondition, "")
	}

	for _, cf := range tc.CustomFields {
		out.Properties = appendProperty(out.Properties, cf.Name, wireValue(cf.Value), cf.Type)
	}

	for _, step := range tc.Steps {
		out.TestSteps = append(out.TestSteps, TestStep{
			Order:       step.Order,
			Description: step.Description,
			Expected:    step.Expected,
			Data:        step.Data,
		})
	}

	return out
}

// ToCanonical converts a Manager wire test case to the canonical model.
// Missing optional fields become documented defaults; absent data never
// causes an error.
func ToCanonical(w TestCase) canonical.TestCase {
	out := canonical.TestCase{
		Name:         w.Name,
		Description:  w.Description,
		Priority:     canonical.ParsePriority(stringProperty(w.Properties, propPriority)),
		Status:       canonical.ParseStatus(stringProperty(w.Properties, propStatus)),
		Objective:    stringProperty(w.Properties, propObjective),
		Precondition: stringProperty(w.Properties, propPrecondition),
	}

	for _, p := range w.Properties {
		if wellKnownProps[strings.ToLower(p.FieldName)] {
			continue
		}
		out.CustomFields = append(out.CustomFields, canonical.CustomField{
			Name:  p.FieldName,
			Value: canonical.CoerceValue(p.FieldValue, p.DataType),
			Type:  p.DataType,
		})
	}

	for _, step := range w.TestSteps {
		out.Steps = append(out.Steps, canonical.Step{
			Order:       step.Order,
			Description: step.Description,
			Expected:    step.Expected,
			Data:        step.Data,
		})
	}

	return out
}

// FolderFromCanonical converts a canonical folder to the wire shape.
// parentID is the target-side parent module id, 0 for roots.
func FolderFromCanonical(f canonical.Folder, parentID int64) Module {
	return Module{
		Name:        f.Name,
		Description: f.Description,
		ParentID:    parentID,
	}
}

// FolderToCanonical converts a wire module back to the canonical model.
// The source id is the wire id rendered as a string; the parent reference
// is left to the caller, which knows the surrounding hierarchy.
func FolderToCanonical(m Module) canonical.Folder {
	return canonical.Folder{
		SourceID:    fmt.Sprintf("%d", m.ID),
		Name:        m.Name,
		Description: m.Description,
	}
}

// appendProperty appends a fresh property entry. The bag is never mutated
// in place and existing entries are never overwritten.
func appendProperty(bag []Property, name string, value any, dataType string) []Property {
	return append(bag, Property{FieldName: name, FieldValue: value, DataType: dataType})
}

// stringProperty searches the bag case-insensitively and renders the first
// match as a string. Absent or non-string-like values yield "".
func stringProperty(bag []Property, name string) string {
	lower := strings.ToLower(name)
	for _, p := range bag {
		if strings.ToLower(p.FieldName) != lower {
			continue
		}
		switch v := p.FieldValue.(type) {
		case string:
			return v
		case float64:
			// JSON numbers decode as float64; property codes are integral.
			return fmt.Sprintf("%d", int64(v))
		case int:
			return fmt.Sprintf("%d", v)
		case int64:
			return fmt.Sprintf("%d", v)
		}
		return ""
	}
	return ""
}

// wireValue renders a canonical custom-field value in the wire encoding:
// lists become pipe-delimited strings, everything else passes through.
func wireValue(v any) any {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, "|")
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, "|")
	}
	return v
}
