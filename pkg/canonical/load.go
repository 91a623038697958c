package canonical

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadBatch reads a migration batch from a YAML export file and validates
// required fields. Attachment paths are resolved relative to the batch file;
// their content is read eagerly so a missing artifact fails the load, not
// the run.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}

	if err := ValidateBatch(&batch); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	for i := range batch.TestCases {
		tc := &batch.TestCases[i]
		for j := range tc.Attachments {
			att := &tc.Attachments[j]
			if att.Path == "" || len(att.Content) > 0 {
				continue
			}
			content, err := os.ReadFile(resolvePath(baseDir, att.Path))
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment %s for test case %s: %w",
					att.Name, tc.SourceID, err)
			}
			att.Content = content
		}
	}

	return &batch, nil
}

// ValidateBatch checks required fields and referential integrity. Every
// folder parent must name a folder in the batch; a test-case folder
// reference may instead resolve against an earlier run's id map, so it is
// not checked here.
func ValidateBatch(batch *Batch) error {
	folders := make(map[string]bool, len(batch.Folders))
	for i, f := range batch.Folders {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("folder %d invalid: %w", i, err)
		}
		if folders[f.SourceID] {
			return fmt.Errorf("duplicate folder source id %q", f.SourceID)
		}
		folders[f.SourceID] = true
	}

	for _, f := range batch.Folders {
		if f.Parent != "" && !folders[f.Parent] {
			return fmt.Errorf("folder %q references unknown parent %q", f.SourceID, f.Parent)
		}
	}

	seen := make(map[string]bool, len(batch.TestCases))
	for i, tc := range batch.TestCases {
		if err := validate.Struct(tc); err != nil {
			return fmt.Errorf("test case %d invalid: %w", i, err)
		}
		if seen[tc.SourceID] {
			return fmt.Errorf("duplicate test case source id %q", tc.SourceID)
		}
		seen[tc.SourceID] = true
	}

	for i, link := range batch.Links {
		if err := validate.Struct(link); err != nil {
			return fmt.Errorf("link %d invalid: %w", i, err)
		}
	}

	return nil
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
