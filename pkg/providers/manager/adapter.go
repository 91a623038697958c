package manager

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

const moduleName = "manager"

// Adapter talks to the Manager product for one project. Every call is a
// single logical attempt; retries belong to the transport. Every failure
// leaves this package as a *apierror.Error.
type Adapter struct {
	exec      transport.Executor
	projectID int64
	basePath  string
}

// New creates a Manager adapter scoped to projectID. basePath overrides the
// default API prefix when non-empty.
func New(exec transport.Executor, projectID int64, basePath string) *Adapter {
	if basePath == "" {
		basePath = "/api/v3"
	}
	return &Adapter{exec: exec, projectID: projectID, basePath: basePath}
}

func (a *Adapter) projectPath(suffix string) string {
	return fmt.Sprintf("%s/projects/%d%s", a.basePath, a.projectID, suffix)
}

// Health probes the product by fetching the configured project.
func (a *Adapter) Health(ctx context.Context) error {
	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.projectPath(""),
	})
	if err != nil {
		return apierror.Classify(err).WithContext(moduleName, "health")
	}
	return nil
}

// ListFolders returns every folder of the project.
func (a *Adapter) ListFolders(ctx context.Context) ([]Module, error) {
	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.projectPath("/modules"),
	})
	if err != nil {
		return nil, apierror.Classify(err).WithContext(moduleName, "listFolders")
	}

	var out page[Module]
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable folder list response", nil).
			WithContext(moduleName, "listFolders")
	}
	return out.Items, nil
}

// CreateFolder creates a folder and returns the created wire object.
// The name is validated locally before any network call.
func (a *Adapter) CreateFolder(ctx context.Context, folder Module) (*Module, error) {
	if folder.Name == "" {
		return nil, apierror.NewValidation("folder name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "createFolder")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.projectPath("/modules"),
		Body:   folder,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "createFolder").
			WithResource("folder", folder.Name)
	}

	var created Module
	if err := resp.Decode(&created); err != nil {
		return nil, apierror.NewValidation("unparseable create-folder response", nil).
			WithContext(moduleName, "createFolder")
	}
	return &created, nil
}

// ListTestCases returns the test cases under one folder.
func (a *Adapter) ListTestCases(ctx context.Context, folderID int64) ([]TestCase, error) {
	if folderID <= 0 {
		return nil, apierror.NewValidation("folder id must be positive", nil).
			WithContext(moduleName, "listTestCases")
	}

	q := url.Values{"parentId": {strconv.FormatInt(folderID, 10)}}
	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   a.projectPath("/test-cases"),
		Query:  q,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "listTestCases").
			WithResource("folder", strconv.FormatInt(folderID, 10))
	}

	var out page[TestCase]
	if err := resp.Decode(&out); err != nil {
		return nil, apierror.NewValidation("unparseable test-case list response", nil).
			WithContext(moduleName, "listTestCases")
	}
	return out.Items, nil
}

// CreateTestCase creates a test case and returns the created wire object.
func (a *Adapter) CreateTestCase(ctx context.Context, tc TestCase) (*TestCase, error) {
	if tc.Name == "" {
		return nil, apierror.NewValidation("test case name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "createTestCase")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.projectPath("/test-cases"),
		Body:   tc,
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "createTestCase").
			WithResource("test-case", tc.Name)
	}

	var created TestCase
	if err := resp.Decode(&created); err != nil {
		return nil, apierror.NewValidation("unparseable create-test-case response", nil).
			WithContext(moduleName, "createTestCase")
	}
	return &created, nil
}

// DeleteTestCase removes one test case.
func (a *Adapter) DeleteTestCase(ctx context.Context, id int64) error {
	if id <= 0 {
		return apierror.NewValidation("test case id must be positive", nil).
			WithContext(moduleName, "deleteTestCase")
	}

	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   a.projectPath(fmt.Sprintf("/test-cases/%d", id)),
	})
	if err != nil {
		return apierror.Classify(err).
			WithContext(moduleName, "deleteTestCase").
			WithResource("test-case", strconv.FormatInt(id, 10))
	}
	return nil
}

// UploadAttachment streams an attachment payload onto a test case.
func (a *Adapter) UploadAttachment(ctx context.Context, testCaseID int64, name, contentType string, content []byte) (*BlobHandle, error) {
	if testCaseID <= 0 {
		return nil, apierror.NewValidation("test case id must be positive", nil).
			WithContext(moduleName, "uploadAttachment")
	}
	if name == "" {
		return nil, apierror.NewValidation("attachment name is required",
			map[string]string{"name": "required"}).
			WithContext(moduleName, "uploadAttachment")
	}

	resp, err := a.exec.Execute(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        a.projectPath(fmt.Sprintf("/test-cases/%d/blob-handles", testCaseID)),
		Raw:         bytes.NewReader(content),
		ContentType: contentType,
		Header:      http.Header{"File-Name": {name}},
	})
	if err != nil {
		return nil, apierror.Classify(err).
			WithContext(moduleName, "uploadAttachment").
			WithResource("attachment", name)
	}

	var handle BlobHandle
	if err := resp.Decode(&handle); err != nil {
		return nil, apierror.NewValidation("unparseable upload response", nil).
			WithContext(moduleName, "uploadAttachment")
	}
	return &handle, nil
}

// CreateLink relates two test cases by their target-side ids.
func (a *Adapter) CreateLink(ctx context.Context, fromID, toID int64, linkType string) error {
	if fromID <= 0 || toID <= 0 {
		return apierror.NewValidation("link endpoints must be positive ids", nil).
			WithContext(moduleName, "createLink")
	}

	_, err := a.exec.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   a.projectPath(fmt.Sprintf("/test-cases/%d/links", fromID)),
		Body:   Link{TestCaseID: toID, Type: linkType},
	})
	if err != nil {
		return apierror.Classify(err).
			WithContext(moduleName, "createLink").
			WithResource("test-case", strconv.FormatInt(fromID, 10))
	}
	return nil
}
