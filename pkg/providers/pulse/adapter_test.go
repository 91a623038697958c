package pulse

import (
	"context"
	"net/http"
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
	return &transport.Response{StatusCode: 200, Body: []byte(`{}`)}, nil
}

func TestCreateRuleRequestShape(t *testing.T) {
	exec := &mockExecutor{response: &transport.Response{
		StatusCode: 201,
		Body:       []byte(`{"id": 4, "name": "notify", "event": "item.failed", "action": "webhook"}`),
	}}
	a := New(exec, 3, "")

	created, err := a.Create(context.Background(), Rule{Name: "notify", Event: "item.failed", Action: "webhook"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 4 {
		t.Errorf("created id = %d, want 4", created.ID)
	}

	req := exec.requests[len(exec.requests)-1]
	if req.Method != http.MethodPost {
		t.Errorf("method = %s", req.Method)
	}
	if req.Path != "/api/pulse/v1/projects/3/rules" {
		t.Errorf("path = %s", req.Path)
	}
}

func TestCreateRuleLocalValidation(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 3, "")

	_, err := a.Create(context.Background(), Rule{Event: "item.failed"})
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

func TestDeleteRuleRejectsNonPositiveID(t *testing.T) {
	exec := &mockExecutor{}
	a := New(exec, 3, "")

	if err := a.Delete(context.Background(), 0); err == nil {
		t.Fatal("expected validation error")
	}
	if len(exec.requests) != 0 {
		t.Error("local validation must not touch the network")
	}
}
