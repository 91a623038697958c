package facade

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/testshift/testshift/pkg/apierror"
	"github.com/testshift/testshift/pkg/canonical"
	"github.com/testshift/testshift/pkg/config"
	"github.com/testshift/testshift/pkg/telemetry"
	"github.com/testshift/testshift/pkg/transport"
)

// scriptedExecutor records every request and routes responses by a
// caller-supplied handler.
type scriptedExecutor struct {
	mu       sync.Mutex
	requests []*transport.Request
	handle   func(req *transport.Request) (*transport.Response, error)
}

func (s *scriptedExecutor) Execute(_ context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.handle == nil {
		return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	}
	return s.handle(req)
}

func (s *scriptedExecutor) recorded() []*transport.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*transport.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func okJSON(body string) (*transport.Response, error) {
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:  "https://target.example.com",
		APIToken: "token",
	}
	cfg.Products.Manager = &config.ProductConfig{ProjectID: 7}
	cfg.ApplyDefaults()
	return cfg
}

func newTestFacade(t *testing.T, cfg *config.Config, exec transport.Executor) *Facade {
	t.Helper()
	f, err := New(cfg, WithExecutorFactory(func(*config.Config) transport.Executor {
		return exec
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.APIToken = ""

	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected credential validation error")
	}
	if !apierror.IsCategory(err, apierror.CategoryValidation) {
		t.Fatalf("category = %v, want validation", err)
	}
}

func TestNewRejectsAmbiguousCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Username = "user"
	cfg.Password = "pass"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for token plus basic credentials")
	}
}

func TestInitializeMandatoryFailureAborts(t *testing.T) {
	exec := &scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		return nil, &apierror.Failure{StatusCode: http.StatusUnauthorized}
	}}
	f := newTestFacade(t, testConfig(), exec)

	err := f.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected initialize to fail")
	}
	if !strings.Contains(err.Error(), "manager adapter initialization failed") {
		t.Fatalf("error = %v, want manager adapter context", err)
	}
	if got := f.State(); got != StateUninitialized {
		t.Fatalf("state = %v, want %v", got, StateUninitialized)
	}
}

func TestInitializeOptionalFailureIsScoped(t *testing.T) {
	exec := &scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		if strings.Contains(req.Path, "/api/parameters/") {
			return nil, &apierror.Failure{StatusCode: http.StatusInternalServerError}
		}
		return okJSON(`{}`)
	}}
	cfg := testConfig()
	cfg.Products.Parameters = &config.ProductConfig{ProjectID: 7}
	f := newTestFacade(t, cfg, exec)

	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := f.State(); got != StateReady {
		t.Fatalf("state = %v, want %v", got, StateReady)
	}

	_, err := f.CreateParameter(context.Background(), "browser", []string{"chrome"})
	if err == nil {
		t.Fatal("expected not-initialized error")
	}
	if !apierror.IsCategory(err, apierror.CategoryClient) {
		t.Fatalf("category = %v, want client", err)
	}
	if !strings.Contains(err.Error(), "parameters provider not initialized") {
		t.Fatalf("error = %v, want not-initialized message", err)
	}

	status := f.TestConnection(context.Background())
	if !status.Connected {
		t.Fatal("expected connected via healthy manager adapter")
	}
	detail, ok := status.Details["parameters"]
	if !ok {
		t.Fatal("expected parameters detail entry")
	}
	if detail.Initialized || detail.Error == "" {
		t.Fatalf("parameters detail = %+v, want uninitialized with error", detail)
	}
}

func TestCapabilityBeforeInitialize(t *testing.T) {
	f := newTestFacade(t, testConfig(), &scriptedExecutor{})

	_, err := f.CreateFolder(context.Background(), canonical.Folder{Name: "Regression"}, "")
	if err == nil {
		t.Fatal("expected not-initialized error")
	}
	if !strings.Contains(err.Error(), "manager provider not initialized") {
		t.Fatalf("error = %v, want manager not-initialized message", err)
	}
}

func TestCreateTestCaseRoutesToManager(t *testing.T) {
	exec := &scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		if req.Method == http.MethodPost && strings.HasSuffix(req.Path, "/test-cases") {
			return okJSON(`{"id": 101, "name": "Login works"}`)
		}
		return okJSON(`{}`)
	}}
	f := newTestFacade(t, testConfig(), exec)
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	id, err := f.CreateTestCase(context.Background(), canonical.TestCase{
		SourceID: "TC-1",
		Name:     "Login works",
	}, "55")
	if err != nil {
		t.Fatalf("CreateTestCase() error = %v", err)
	}
	if id != "101" {
		t.Fatalf("id = %q, want %q", id, "101")
	}

	var create *transport.Request
	for _, req := range exec.recorded() {
		if req.Method == http.MethodPost && strings.HasSuffix(req.Path, "/test-cases") {
			create = req
		}
	}
	if create == nil {
		t.Fatal("expected a create-test-case request")
	}
	if !strings.Contains(create.Path, "/projects/7/") {
		t.Fatalf("path = %q, want project scope", create.Path)
	}
}

func TestCreateTestCaseRejectsMalformedFolderID(t *testing.T) {
	exec := &scriptedExecutor{}
	f := newTestFacade(t, testConfig(), exec)
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	before := len(exec.recorded())

	_, err := f.CreateTestCase(context.Background(), canonical.TestCase{Name: "x"}, "not-a-number")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apierror.IsCategory(err, apierror.CategoryValidation) {
		t.Fatalf("category = %v, want validation", err)
	}
	if got := len(exec.recorded()); got != before {
		t.Fatalf("requests = %d, want %d (no network call)", got, before)
	}
}

func TestDeleteTestCasesInFolder(t *testing.T) {
	exec := &scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		if req.Method == http.MethodGet && strings.HasSuffix(req.Path, "/test-cases") {
			return okJSON(`{"items": [{"id": 1}, {"id": 2}], "total": 2}`)
		}
		return okJSON(`{}`)
	}}
	f := newTestFacade(t, testConfig(), exec)
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := f.DeleteTestCasesInFolder(context.Background(), "9"); err != nil {
		t.Fatalf("DeleteTestCasesInFolder() error = %v", err)
	}

	var deletes int
	for _, req := range exec.recorded() {
		if req.Method == http.MethodDelete {
			deletes++
		}
	}
	if deletes != 2 {
		t.Fatalf("deletes = %d, want 2", deletes)
	}
}

func TestCreateCustomFieldUnsupported(t *testing.T) {
	f := newTestFacade(t, testConfig(), &scriptedExecutor{})
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	err := f.CreateCustomField(context.Background(), canonical.CustomField{Name: "Sprint"})
	if err == nil {
		t.Fatal("expected unsupported-operation error")
	}
	if !apierror.IsCategory(err, apierror.CategoryClient) {
		t.Fatalf("category = %v, want client", err)
	}
	if !strings.Contains(err.Error(), "not supported by any configured product") {
		t.Fatalf("error = %v, want unsupported message", err)
	}
}

func TestTestConnectionReportsUnhealthyManager(t *testing.T) {
	healthy := true
	exec := &scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		if !healthy {
			return nil, &apierror.Failure{StatusCode: http.StatusServiceUnavailable}
		}
		return okJSON(`{}`)
	}}
	f := newTestFacade(t, testConfig(), exec)
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	healthy = false
	status := f.TestConnection(context.Background())
	if status.Connected {
		t.Fatal("expected disconnected when the only adapter is unhealthy")
	}
	detail := status.Details["manager"]
	if !detail.Initialized || detail.Healthy || detail.Error == "" {
		t.Fatalf("manager detail = %+v, want initialized, unhealthy, with error", detail)
	}
}

// ctxExecutor notes whether a span context had reached the transport by the
// time Execute ran.
type ctxExecutor struct {
	scriptedExecutor
	mu      sync.Mutex
	sawSpan bool
}

func (c *ctxExecutor) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if telemetry.SpanFromContext(ctx).SpanContext().IsValid() {
		c.mu.Lock()
		c.sawSpan = true
		c.mu.Unlock()
	}
	return c.scriptedExecutor.Execute(ctx, req)
}

func TestAdapterCallsCarrySpans(t *testing.T) {
	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
		Enabled:      true,
		Exporter:     "none",
		SamplingRate: 1,
	}, "testshift", "test", "test")
	if err != nil {
		t.Fatalf("NewTracer() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	exec := &ctxExecutor{scriptedExecutor: scriptedExecutor{handle: func(req *transport.Request) (*transport.Response, error) {
		if req.Method == http.MethodPost && strings.HasSuffix(req.Path, "/test-cases") {
			return okJSON(`{"id": 9, "name": "traced"}`)
		}
		return okJSON(`{}`)
	}}}
	f, err := New(testConfig(),
		WithExecutorFactory(func(*config.Config) transport.Executor { return exec }),
		WithTracer(tracer))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := f.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if _, err := f.CreateTestCase(context.Background(), canonical.TestCase{Name: "traced"}, ""); err != nil {
		t.Fatalf("CreateTestCase() error = %v", err)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if !exec.sawSpan {
		t.Fatal("expected the adapter request context to carry an active span")
	}
}
