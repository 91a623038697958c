// Package parameters is the adapter for the Parameters product, which owns
// named parameter sets and their value lists.
package parameters

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

const moduleName = "parameters"

// Parameter is the wire parameter-set shape.
type Parameter struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Values      []string `json:"values,omitempty"`
}

type page struct {
	Items []Parameter `json:"items"`
	Total int         `json:"total"`
}

// Adapter talks to the Parameters product for one project.
type Adapter struct {
	exec      transport.Executor
	projectID int64
	basePath  string
}

// New creates a Parameters adapter scoped to projectID.
func New(exec transport.Executor, projectID int64, basePath string) *Adapter {
	if basePath == "" {
		basePath = "/api/parameters/v1"
	}
	return &Adapter{exec: exec, projectID: projectID, basePath: basePath}
}

func (a *Adapter) path(suffix string) string {
	return fmt.Sprintf("%s/projects/%d%s", a.basePath, a.projectID, suffix)
}

// Health probes the product with an empty parameter listing.
func (a *Adapter) Health(ctx context.Context) error {
	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/parameters"),
	})
	if err != nil {
		return apierror.Classify(err).WithContext(moduleName, "health")
	}
	return nil
}

// List returns every parameter set of the project.
func (a *Adapter) List(ctx context.Context) ([]Parameter, error) {
	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/parameters"),
	})
	if err != nil {
		return nil, apierror.Classify(err).WithContext(moduleName, "listParameters")
	}

	var out page
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable parameter list response", nil).
			WithContext(moduleName, "listParameters")
	}
	return out.Items, nil
}

// Create creates a parameter set and returns the created wire object.
func (a *Adapter) Create(ctx context.Context, p Parameter) (*Parameter, error) {
	if p.Name == "" {
		return nil, apierror.NewValidation("parameter name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "createParameter")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.path("/parameters"),
		Body:   p,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "createParameter").
			WithResource("parameter", p.Name)
	}

	var created Parameter
	if err := resp.Decode(&created); err != nil {
		return nil, apierror.NewValidation("unparseable create-parameter response", nil).
			WithContext(moduleName, "createParameter")
	}
	return &created, nil
}

// Delete removes one parameter set.
func (a *Adapter) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apierror.NewValidation("parameter id must be positive", nil).
			WithContext(moduleName, "deleteParameter")
	}

	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   a.path(fmt.Sprintf("/parameters/%d", id)),
	})
	if err != nil {
		return apierror.Classify(err).
			WithContext(moduleName, "deleteParameter").
			WithResource("parameter", strconv.FormatInt(id, 10))
	}
	return nil
}
