package canonical

import (
	"reflect"
	"testing"
	"time"
)

func TestParsePriorityDefaults(t *testing.T) {
	tests := []struct {
		raw  string
		want Priority
	}{
		{"1", PriorityLow},
		{"4", PriorityCritical},
		{"High", PriorityHigh},
		{"URGENT", PriorityCritical},
		{"", DefaultPriority},
		{"7", DefaultPriority},
		{"banana", DefaultPriority},
	}
	for _, tt := range tests {
		if got := ParsePriority(tt.raw); got != tt.want {
			t.Errorf("ParsePriority(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseStatusDefaults(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"2", StatusReady},
		{"deprecated", StatusObsolete},
		{"Approved", StatusApproved},
		{"", DefaultStatus},
		{"unknown-code", DefaultStatus},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.raw); got != tt.want {
			t.Errorf("ParseStatus(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestPriorityRoundTrip(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if got := ParsePriority(ProductPriority(p)); got != p {
			t.Errorf("priority %s did not round-trip, got %s", p, got)
		}
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		typeHint string
		want     any
	}{
		{"multi-select pipe string", "1|2|3", "MULTI_SELECT", []string{"1", "2", "3"}},
		{"multi-select already list", []any{"a", "b"}, "MULTI_SELECT", []string{"a", "b"}},
		{"list with spaces", "red | green | blue", "LIST", []string{"red", "green", "blue"}},
		{"boolean true string", "true", "BOOLEAN", true},
		{"boolean yes", "Yes", "BOOLEAN", true},
		{"boolean false string", "0", "BOOLEAN", false},
		{"boolean passthrough", "maybe", "BOOLEAN", "maybe"},
		{"integer string", "42", "INTEGER", int64(42)},
		{"integer from float", 42.0, "INTEGER", int64(42)},
		{"decimal string", "3.14", "DECIMAL", 3.14},
		{"float alias", "2.5", "FLOAT", 2.5},
		{"user trims", "  jdoe  ", "USER", "jdoe"},
		{"unknown hint passthrough", "raw value", "GEOMETRY", "raw value"},
		{"empty hint passthrough", 99, "", 99},
		{"case-insensitive hint", "true", "boolean", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceValue(tt.raw, tt.typeHint)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CoerceValue(%v, %s) = %#v, want %#v", tt.raw, tt.typeHint, got, tt.want)
			}
		})
	}
}

func TestCoerceDate(t *testing.T) {
	got := CoerceValue("2024-05-01", "DATE")
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", got)
	}
	if ts.Year() != 2024 || ts.Month() != time.May || ts.Day() != 1 {
		t.Errorf("parsed wrong date: %v", ts)
	}

	// Unparseable dates pass through rather than fail.
	if got := CoerceValue("yesterday", "DATETIME"); got != "yesterday" {
		t.Errorf("unparseable date should pass through, got %v", got)
	}
}
