// Package canonical defines the provider-agnostic representation of test
// assets shared by every product adapter. Values are constructed by the
// caller or by a product mapper and passed by value through the pipeline;
// they carry no run-scoped mutable state.
package canonical

// Folder is a container in the test-case hierarchy. Parent is the sourceId
// of the parent folder, empty for roots.
type Folder struct {
	SourceID    string `yaml:"source_id" json:"source_id" validate:"required"`
	Name        string `yaml:"name" json:"name" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Parent      string `yaml:"parent,omitempty" json:"parent,omitempty"`
}

// TestCase is a single test case with its ordered steps and attachments.
// Folder, if set, must resolve to a Folder in the same migration batch or
// one already migrated.
type TestCase struct {
	SourceID     string        `yaml:"source_id" json:"source_id" validate:"required"`
	Name         string        `yaml:"name" json:"name" validate:"required"`
	Description  string        `yaml:"description,omitempty" json:"description,omitempty"`
	Precondition string        `yaml:"precondition,omitempty" json:"precondition,omitempty"`
	Objective    string        `yaml:"objective,omitempty" json:"objective,omitempty"`
	Folder       string        `yaml:"folder,omitempty" json:"folder,omitempty"`
	Priority     Priority      `yaml:"priority,omitempty" json:"priority,omitempty"`
	Status       Status        `yaml:"status,omitempty" json:"status,omitempty"`
	Steps        []Step        `yaml:"steps,omitempty" json:"steps,omitempty"`
	Attachments  []Attachment  `yaml:"attachments,omitempty" json:"attachments,omitempty"`
	CustomFields []CustomField `yaml:"custom_fields,omitempty" json:"custom_fields,omitempty"`
}

// Step is one ordered action within a test case.
type Step struct {
	Order       int    `yaml:"order" json:"order"`
	Description string `yaml:"description" json:"description"`
	Expected    string `yaml:"expected,omitempty" json:"expected,omitempty"`
	Data        string `yaml:"data,omitempty" json:"data,omitempty"`
}

// Attachment is a binary artifact owned by a test case. Content holds the
// payload when loaded inline; Path points at a file to read lazily.
type Attachment struct {
	Name        string `yaml:"name" json:"name"`
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	Content     []byte `yaml:"content,omitempty" json:"-"`
}

// Link is a directed relationship between two test cases, identified by
// their source ids.
type Link struct {
	SourceID string `yaml:"source_id" json:"source_id" validate:"required"`
	TargetID string `yaml:"target_id" json:"target_id" validate:"required"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
}

// CustomField is a typed extended field on a test case. Value holds the
// coerced representation; Type is the declared type hint, empty when the
// origin system supplied none.
type CustomField struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Batch is one migration invocation's worth of assets.
type Batch struct {
	Folders   []Folder   `yaml:"folders,omitempty" json:"folders,omitempty"`
	TestCases []TestCase `yaml:"test_cases,omitempty" json:"test_cases,omitempty"`
	Links     []Link     `yaml:"links,omitempty" json:"links,omitempty"`
}
