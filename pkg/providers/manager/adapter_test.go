package manager

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

// mockExecutor records requests and replays scripted outcomes.
type mockExecutor struct {
	mu       sync.Mutex
	requests []*transport.Request
	response *transport.Response
	err      error
}

func (m *mockExecutor) Execute(_ context.Context, req *transport.Request) (*transport.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &transport.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func (m *mockExecutor) lastRequest(t *testing.T) *transport.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatal("no request issued")
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func TestCreateFolderRequestShape(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 201,
		Body:       []byte(`{"id": 55, "name": "Regression"}`),
	}}
	a := New(exec, 42, "")

	created, err := a.CreateFolder(context.Background(), Module{Name: "Regression", ParentID: 9})
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	if created.ID != 55 {
		t.Errorf("created id = %d, want 55", created.ID)
	}

	req := exec.lastRequest(t)
	if req.Method != http.MethodPost {
		t.Errorf("method = %s", req.Method)
	}
	if req.Path != "/api/v3/projects/42/modules" {
		t.Errorf("path = %s", req.Path)
	}
}

func TestCreateFolderLocalValidation(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 42, "")

	_, err := a.CreateFolder(context.Background(), Module{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apierror.IsCategory(err, apierror.CategoryValidation) {
		t.Errorf("category wrong: %v", err)
	}
	if exec.callCount() != 0 {
		t.Error("local validation must not touch the network")
	}

	e, _ := apierror.As(err)
	if e.FieldErrors["name"] != "required" {
		t.Errorf("field errors = %v", e.FieldErrors)
	}
	if e.Context.Module != "manager" || e.Context.Operation != "createFolder" {
		t.Errorf("context = %+v", e.Context)
	}
}

func TestCreateTestCaseClassifiesFailure(t *testing.T) {
	exec := &mockExecutor{err: &apierror.Failure{StatusCode: 409}}
	a := New(exec, 42, "")

	_, err := a.CreateTestCase(context.Background(), TestCase{Name: "dup"})
	if err == nil {
		t.Fatal("expected error")
	}
	e, ok := apierror.As(err)
	if !ok {
		t.Fatalf("raw error escaped the adapter: %T", err)
	}
	if e.Category != apierror.CategoryConflict {
		t.Errorf("category = %s, want conflict", e.Category)
	}
	if e.Context.Module != "manager" || e.Context.Operation != "createTestCase" {
		t.Errorf("context = %+v", e.Context)
	}
	if e.Context.ResourceID != "dup" {
		t.Errorf("resource id = %q", e.Context.ResourceID)
	}
}

func TestUploadAttachment(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 201,
		Body:       []byte(`{"id": 3, "name": "log.txt", "size": 7}`),
	}}
	a := New(exec, 42, "")

	handle, err := a.UploadAttachment(context.Background(), 10, "log.txt", "text/plain", []byte("payload"))
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}
	if handle.ID != 3 {
		t.Errorf("handle id = %d", handle.ID)
	}

	req := exec.lastRequest(t)
	if req.Raw == nil {
		t.Error("attachment must stream as a raw body")
	}
	if req.ContentType != "text/plain" {
		t.Errorf("content type = %q", req.ContentType)
	}
	if !strings.HasSuffix(req.Path, "/test-cases/10/blob-handles") {
		t.Errorf("path = %s", req.Path)
	}
}

func TestListTestCasesQuery(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 200,
		Body:       []byte(`{"items": [{"id": 1, "name": "a"}], "total": 1}`),
	}}
	a := New(exec, 42, "")

	items, err := a.ListTestCases(context.Background(), 8)
	if err != nil {
		t.Fatalf("ListTestCases failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "a" {
		t.Errorf("items = %+v", items)
	}
	if got := exec.lastRequest(t).Query.Get("parentId"); got != "8" {
		t.Errorf("parentId = %q", got)
	}
}

func TestBasePathOverride(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 7, "/custom/api")

	if err := a.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if got := exec.lastRequest(t).Path; got != "/custom/api/projects/7" {
		t.Errorf("path = %s", got)
	}
}
