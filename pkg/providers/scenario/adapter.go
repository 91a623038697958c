// Package scenario is the adapter for the Scenario product, which owns BDD
// feature files.
package scenario

import (
	"context"
	"fmt"
	"net/http"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

const moduleName = "scenario"

// Feature is the wire feature-file shape.
type Feature struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type page struct {
	Items []Feature `json:"items"`
	Total int       `json:"total"`
}

// Adapter talks to the Scenario product for one project.
type Adapter struct {
	exec      transport.Executor
	projectID int64
	basePath  string
}

// New creates a Scenario adapter scoped to projectID.
func New(exec transport.Executor, projectID int64, basePath string) *Adapter {
	if basePath == "" {
		basePath = "/api/scenario/v1"
	}
	return &Adapter{exec: exec, projectID: projectID, basePath: basePath}
}

func (a *Adapter) path(suffix string) string {
	return fmt.Sprintf("%s/projects/%d%s", a.basePath, a.projectID, suffix)
}

// Health probes the product with an empty feature listing.
func (a *Adapter) Health(ctx context.Context) error {
	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/features"),
	})
	if err != nil {
		return apierror.Classify(err).WithContext(moduleName, "health")
	}
	return nil
}

// List returns every feature of the project.
func (a *Adapter) List(ctx context.Context) ([]Feature, error) {
	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/features"),
	})
	if err != nil {
		return nil, apierror.Classify(err).WithContext(moduleName, "listFeatures")
	}

	var out page
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable feature list response", nil).
			WithContext(moduleName, "listFeatures")
	}
	return out.Items, nil
}

// Create creates a feature and returns the created wire object.
func (a *Adapter) Create(ctx context.Context, f Feature) (*Feature, error) {
	if f.Name == "" {
		return nil, apierror.NewValidation("feature name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "createFeature")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.path("/features"),
		Body:   f,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "createFeature").
			WithResource("feature", f.Name)
	}

	var created Feature
	if err := resp.Decode(&created); err != nil {
		return nil, apierror.NewValidation("unparseable create-feature response", nil).
			WithContext(moduleName, "createFeature")
	}
	return &created, nil
}
