// Package manager is the adapter for the Manager product, which owns the
// folder hierarchy, test cases, attachments, and test-case links.
package manager

// Property is one entry of a resource's property bag. Product-specific
// metadata (priority, status, objective, precondition, custom fields) is
// stored here rather than as first-class fields; order and completeness are
// never guaranteed.
type Property struct {
	FieldName  string `json:"field_name"`
	FieldValue any    `json:"field_value"`
	DataType   string `json:"data_type,omitempty"`
}

// Module is a wire folder. ParentID 0 means root.
type Module struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
}

// TestStep is one wire test-case step.
type TestStep struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
	Expected    string `json:"expected,omitempty"`
	Data        string `json:"data,omitempty"`
}

// TestCase is the wire test-case shape.
type TestCase struct {
	ID          int64      `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ModuleID    int64      `json:"parent_id,omitempty"`
	Properties  []Property `json:"properties,omitempty"`
	TestSteps   []TestStep `json:"test_steps,omitempty"`
}

// Link is a wire test-case relationship.
type Link struct {
	TestCaseID int64  `json:"test_case_id"`
	Type       string `json:"type"`
}

// BlobHandle is the wire attachment descriptor returned after an upload.
type BlobHandle struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Project is the wire project shape, used by the health probe.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// page is the list envelope every Manager collection endpoint returns.
type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
