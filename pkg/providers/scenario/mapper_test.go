package scenario

import (
	"strings"
	"testing"

	"github.com/testshift/testshift/pkg/canonical"
)

func TestFromCanonicalGherkin(t *testing.T) {
	tc := canonical.TestCase{
		Name:         "Valid login",
		Precondition: "a registered user exists",
		Steps: []canonical.Step{
			{Order: 1, Description: "the user submits valid credentials", Expected: "the dashboard is shown"},
			{Order: 2, Description: "the user reloads the page"},
		},
	}

	f := FromCanonical(tc)
	if f.Name != "Valid login" {
		t.Errorf("name = %q", f.Name)
	}

	wantLines := []string{
		"Feature: Valid login",
		"Scenario: Valid login",
		"Given a registered user exists",
		"When the user submits valid credentials",
		"Then the dashboard is shown",
		"When the user reloads the page",
	}
	for _, line := range wantLines {
		if !strings.Contains(f.Content, line) {
			t.Errorf("content missing %q:\n%s", line, f.Content)
		}
	}

	// A step without an expected result must not emit a Then line for it.
	if strings.Count(f.Content, "Then ") != 1 {
		t.Errorf("unexpected Then lines:\n%s", f.Content)
	}
}
