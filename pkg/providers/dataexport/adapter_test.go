package dataexport

import (
	"context"
	"sync"
	"testing"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/transport"
)

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
	return &transport.Response{StatusCode: 200, Body: []byte(`{"items": [], "total": 0}`)}, nil
}

func TestSearchTestCasesQueryShape(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 200,
		Body:       []byte(`{"items": [{"id": 7, "name": "Login"}], "total": 31}`),
	}}
	a := New(exec, 9, "")

	page, err := a.SearchTestCases(context.Background(), "name ~ 'Login'", 2, 50)
	if err != nil {
		t.Fatalf("SearchTestCases failed: %v", err)
	}
	if page.Total != 31 || len(page.Items) != 1 {
		t.Errorf("page = %+v", page)
	}

	req := exec.requests[len(exec.requests)-1]
	if req.Path != "/api/export/v1/projects/9/search/test-cases" {
		t.Errorf("path = %s", req.Path)
	}
	if req.Query.Get("page") != "2" || req.Query.Get("pageSize") != "50" {
		t.Errorf("paging = %v", req.Query)
	}
	if req.Query.Get("query") != "name ~ 'Login'" {
		t.Errorf("query = %q", req.Query.Get("query"))
	}
}

func TestSearchTestCasesRejectsBadPaging(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 9, "")

	_, err := a.SearchTestCases(context.Background(), "", 0, 10)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apierror.IsCategory(err, apierror.CategoryValidation) {
		t.Errorf("category wrong: %v", err)
	}
	if len(exec.requests) != 0 {
		t.Error("local validation must not touch the network")
	}
}

func TestCountTestCases(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 200,
		Body:       []byte(`{"items": [{"id": 1, "name": "x"}], "total": 250}`),
	}}
	a := New(exec, 9, "")

	count, err := a.CountTestCases(context.Background(), "")
	if err != nil {
		t.Fatalf("CountTestCases failed: %v", err)
	}
	if count != 250 {
		t.Errorf("count = %d, want 250", count)
	}
}

func TestCountTestCasesEmptyQueryOmitted(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 9, "")

	if _, err := a.CountTestCases(context.Background(), ""); err != nil {
		t.Fatalf("CountTestCases failed: %v", err)
	}
	req := exec.requests[len(exec.requests)-1]
	if req.Query.Has("query") {
		t.Error("empty query must be omitted from the request")
	}
}
