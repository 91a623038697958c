package canonical

import (
	"strconv"
	"strings"
	"time"
)

// Priority is the canonical test-case priority.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Status is the canonical test-case lifecycle status.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusReady    Status = "READY"
	StatusApproved Status = "APPROVED"
	StatusObsolete Status = "OBSOLETE"
)

// DefaultPriority is used when a product value has no mapping.
const DefaultPriority = PriorityMedium

// DefaultStatus is used when a product value has no mapping.
const DefaultStatus = StatusDraft

// priorityFromProduct maps product priority codes (numeric or named) to the
// canonical enum. Keys are lowercased before lookup.
var priorityFromProduct = map[string]Priority{
	"1":        PriorityLow,
	"2":        PriorityMedium,
	"3":        PriorityHigh,
	"4":        PriorityCritical,
	"low":      PriorityLow,
	"medium":   PriorityMedium,
	"normal":   PriorityMedium,
	"high":     PriorityHigh,
	"critical": PriorityCritical,
	"urgent":   PriorityCritical,
}

// priorityToProduct maps canonical priorities back to product codes.
var priorityToProduct = map[Priority]string{
	PriorityLow:      "1",
	PriorityMedium:   "2",
	PriorityHigh:     "3",
	PriorityCritical: "4",
}

var statusFromProduct = map[string]Status{
	"1":          StatusDraft,
	"2":          StatusReady,
	"3":          StatusApproved,
	"4":          StatusObsolete,
	"draft":      StatusDraft,
	"new":        StatusDraft,
	"ready":      StatusReady,
	"approved":   StatusApproved,
	"obsolete":   StatusObsolete,
	"deprecated": StatusObsolete,
}

var statusToProduct = map[Status]string{
	StatusDraft:    "1",
	StatusReady:    "2",
	StatusApproved: "3",
	StatusObsolete: "4",
}

// ParsePriority maps a product priority value to the canonical enum,
// defaulting to MEDIUM for unknown or empty values.
func ParsePriority(raw string) Priority {
	if p, ok := priorityFromProduct[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return p
	}
	return DefaultPriority
}

// ProductPriority maps a canonical priority to its product code.
func ProductPriority(p Priority) string {
	if code, ok := priorityToProduct[p]; ok {
		return code
	}
	return priorityToProduct[DefaultPriority]
}

// ParseStatus maps a product status value to the canonical enum, defaulting
// to DRAFT for unknown or empty values.
func ParseStatus(raw string) Status {
	if s, ok := statusFromProduct[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return DefaultStatus
}

// ProductStatus maps a canonical status to its product code.
func ProductStatus(s Status) string {
	if code, ok := statusToProduct[s]; ok {
		return code
	}
	return statusToProduct[DefaultStatus]
}

// Custom-field type hints as the products declare them.
const (
	TypeBoolean     = "BOOLEAN"
	TypeInteger     = "INTEGER"
	TypeDecimal     = "DECIMAL"
	TypeFloat       = "FLOAT"
	TypeDate        = "DATE"
	TypeDateTime    = "DATETIME"
	TypeUser        = "USER"
	TypeList        = "LIST"
	TypeMultiSelect = "MULTI_SELECT"
)

// dateLayouts are tried in order when coercing DATE/DATETIME values.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CoerceValue converts a generic property value to the canonical
// representation declared by its type hint. An empty or unrecognized hint
// passes the raw value through unchanged; a value that fails to parse under
// its hint is also passed through rather than dropped.
func CoerceValue(raw any, typeHint string) any {
	switch strings.ToUpper(strings.TrimSpace(typeHint)) {
	case TypeBoolean:
		return coerceBool(raw)
	case TypeInteger:
		return coerceInt(raw)
	case TypeDecimal, TypeFloat:
		return coerceFloat(raw)
	case TypeDate, TypeDateTime:
		return coerceTime(raw)
	case TypeUser:
		return coerceString(raw)
	case TypeList, TypeMultiSelect:
		return coerceList(raw)
	default:
		return raw
	}
}

func coerceBool(raw any) any {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return raw
}

func coerceInt(raw any) any {
	switch v := raw.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return raw
}

func coerceFloat(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return raw
}

func coerceTime(raw any) any {
	s, ok := raw.(string)
	if !ok {
		return raw
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t
		}
	}
	return raw
}

func coerceString(raw any) any {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return raw
}

// coerceList accepts an already-list value or a pipe-delimited string.
func coerceList(raw any) any {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := coerceString(item).(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return []string{}
		}
		parts := strings.Split(v, "|")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return raw
}
