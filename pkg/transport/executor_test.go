package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testshift/testshift/pkg/apierror"
)

func newTestExecutor(url string, maxRetries int) *HTTPExecutor {
	return NewHTTPExecutor(Options{
		BaseURL:        url,
		APIToken:       "tok",
		MaxRetries:     maxRetries,
		RequestTimeout: 2 * time.Second,
	})
}

func TestExecuteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7, "name": "Regression"}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(srv.URL, 0)
	resp, err := exec.Execute(context.Background(), &Request{Method: http.MethodGet, Path: "/api/v3/projects"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var out struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.ID != 7 || out.Name != "Regression" {
		t.Errorf("decoded %+v", out)
	}
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(srv.URL, 3)
	_, err := exec.Execute(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Execute failed after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestExecuteDoesNotRetryValidation(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"field_errors":{"name":"required"}}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(srv.URL, 3)
	_, err := exec.Execute(context.Background(), &Request{Method: http.MethodPost, Path: "/"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", got)
	}

	var f *apierror.Failure
	if !errors.As(err, &f) {
		t.Fatalf("error is %T, want *apierror.Failure", err)
	}
	if f.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", f.StatusCode)
	}
	if len(f.Body) == 0 {
		t.Error("failure must carry the response body for classification")
	}
	if e := apierror.Classify(f); e.FieldErrors["name"] != "required" {
		t.Errorf("field errors = %v", e.FieldErrors)
	}
}

func TestExecuteConnectionFailure(t *testing.T) {
	exec := newTestExecutor("http://127.0.0.1:1", 0)
	_, err := exec.Execute(context.Background(), &Request{Method: http.MethodGet, Path: "/"})
	if err == nil {
		t.Fatal("expected error")
	}

	classified := apierror.Classify(err)
	if classified.Category != apierror.CategoryNetwork {
		t.Errorf("category = %s, want network", classified.Category)
	}
	if classified.StatusCode != 0 {
		t.Errorf("status code = %d, want 0", classified.StatusCode)
	}
}

func TestExecuteCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newTestExecutor(srv.URL, 5)
	_, err := exec.Execute(ctx, &Request{Method: http.MethodGet, Path: "/"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
