// Package dataexport is the adapter for the Data-Export product, a
// read-only search surface over migrated assets.
package dataexport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

const moduleName = "dataexport"

// SearchResult is one matching test case.
type SearchResult struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ModuleID int64  `json:"parent_id,omitempty"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Items []SearchResult `json:"items"`
	Total int            `json:"total"`
}

// Adapter talks to the Data-Export product for one project.
type Adapter struct {
	exec      transport.Executor
	projectID int64
	basePath  string
}

// New creates a Data-Export adapter scoped to projectID.
func New(exec transport.Executor, projectID int64, basePath string) *Adapter {
	if basePath == "" {
		basePath = "/api/export/v1"
	}
	return &Adapter{exec: exec, projectID: projectID, basePath: basePath}
}

func (a *Adapter) path(suffix string) string {
	return fmt.Sprintf("%s/projects/%d%s", a.basePath, a.projectID, suffix)
}

// Health probes the product with an empty search.
func (a *Adapter) Health(ctx context.Context) error {
	_, err := a.SearchTestCases(ctx, "", 1, 1)
	if err != nil {
		if e, ok := apierror.As(err); ok {
			e.Context.Operation = "health"
		}
		return err
	}
	return nil
}

// SearchTestCases runs a paged test-case query. An empty query matches
// everything.
func (a *Adapter) SearchTestCases(ctx context.Context, query string, pageNum, pageSize int) (*SearchPage, error) {
	if pageNum < 1 || pageSize < 1 {
		return nil, apierror.NewValidation("page and page size must be positive", nil).
			WithContext(moduleName, "searchTestCases")
	}

	q := url.Values{
		"page":     {strconv.Itoa(pageNum)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	if query != "" {
		q.Set("query", query)
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.path("/search/test-cases"),
		Query:  q,
	})
	if err != nil {
		return nil, apierror.Classify(err).WithContext(moduleName, "searchTestCases")
	}

	var out SearchPage
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable search response", nil).
			WithContext(moduleName, "searchTestCases")
	}
	return &out, nil
}

// CountTestCases returns the total number of test cases matching query.
func (a *Adapter) CountTestCases(ctx context.Context, query string) (int, error) {
	p, err := a.SearchTestCases(ctx, query, 1, 1)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}
