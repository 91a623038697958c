// Package pulse is the adapter for the Pulse product, which owns automation
// rules reacting to test-management events.
package pulse

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

const moduleName = "pulse"

// Rule is the wire automation-rule shape.
type Rule struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"name"`
	Event   string `json:"event"`
	Action  string `json:"action"`
	Enabled bool   `json:"enabled"`
}

type page struct {
	Items []Rule `json:"items"`
	Total int    `json:"total"`
}

// Adapter talks to the Pulse product for one project.
type Adapter struct {
	exec      transport.Executor
	projectID int64
	basePath  string
}

// New creates a Pulse adapter scoped to projectID.
func New(exec transport.Executor, projectID int64, basePath string) *Adapter {
	if basePath == "" {
		basePath = "/api/pulse/v1"
	}
	return &Adapter{exec: exec, projectID: projectID, basePath: basePath}
}

func (a *Adapter) path(suffix string) string {
	return fmt.Sprintf("%s/projects/%d%s", a.basePath, a.projectID, suffix)
}

// Health probes the product with an empty rule listing.
func (a *Adapter) Health(ctx context.Context) error {
	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/rules"),
	})
	if err != nil {
		return apierror.Classify(err).WithContext(moduleName, "health")
	}
	return nil
}

// List returns every rule of the project.
func (a *Adapter) List(ctx context.Context) ([]Rule, error) {
	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/rules"),
	})
	if err != nil {
		return nil, apierror.Classify(err).WithContext(moduleName, "listRules")
	}

	var out page
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable rule list response", nil).
			WithContext(moduleName, "listRules")
	}
	return out.Items, nil
}

// Create creates a rule and returns the created wire object.
func (a *Adapter) Create(ctx context.Context, r Rule) (*Rule, error) {
	if r.Name == "" {
		return nil, apierror.NewValidation("rule name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "createRule")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.path("/rules"),
		Body:   r,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "createRule").
			WithResource("rule", r.Name)
	}

	var created Rule
	if err := resp.Decode(&created); err != nil {
		return nil, apierror.NewValidation("unparseable create-rule response", nil).
			WithContext(moduleName, "createRule")
	}
	return &created, nil
}

// Delete removes one rule.
func (a *Adapter) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apierror.NewValidation("rule id must be positive", nil).
			WithContext(moduleName, "deleteRule")
	}

	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   a.path(fmt.Sprintf("/rules/%d", id)),
	})
	if err != nil {
		return apierror.Classify(err).
			WithContext(moduleName, "deleteRule").
			WithResource("rule", strconv.FormatInt(id, 10))
	}
	return nil
}
