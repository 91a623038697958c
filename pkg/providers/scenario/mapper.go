package scenario

import (
	"fmt"
	"strings"

	"github.com/testshift/testshift/pkg/canonical"
)

// FromCanonical renders a canonical test case as a Gherkin feature. Steps
// become When/Then pairs; precondition becomes a Given. The conversion is
// one-way and lossy: priority, status, attachments, and custom fields have
// no Gherkin representation.
func FromCanonical(tc canonical.TestCase) Feature {
	var b strings.Builder

	fmt.Fprintf(&b, "Feature: %s\n", tc.Name)
	if tc.Description != "" {
		for _, line := range strings.Split(tc.Description, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\n  Scenario: %s\n", tc.Name)
	if tc.Precondition != "" {
		fmt.Fprintf(&b, "    Given %s\n", tc.Precondition)
	}
	for _, step := range tc.Steps {
		fmt.Fprintf(&b, "    When %s\n", step.Description)
		if step.Expected != "" {
			fmt.Fprintf(&b, "    Then %s\n", step.Expected)
		}
	}

	return Feature{
		Name:    tc.Name,
		Content: b.String(),
	}
}
